// Package spawn registers the "spawn" command group: create an entity from a
// prototype at a position, on another entity, inside one of its containers,
// or attached to it.
package spawn

import (
	"context"
	"errors"
	"fmt"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/pipe"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/world"
)

// Group is the command group name.
const Group = "spawn"

// Pipe value tags used by the spawn commands.
const (
	TagCoordinates pipe.Tag = "coordinates"
	TagEntity      pipe.Tag = "entity"
	TagPrototype   pipe.Tag = "prototype"
	TagString      pipe.Tag = "string"
)

// Store is the part of the capability store the spawn commands use.
type Store interface {
	Create(ctx context.Context, proto prototype.ID, at world.Coordinates) (world.EntityID, error)
	Coordinates(ctx context.Context, e world.EntityID) (world.Coordinates, error)
	HasCapability(ctx context.Context, e world.EntityID, c prototype.Capability) (bool, error)
	Container(ctx context.Context, owner world.EntityID, name string) (world.ContainerRef, error)
	Insert(ctx context.Context, c world.ContainerRef, e world.EntityID) error
}

// DeclareTypes records the Go payload type of every spawn tag.
func DeclareTypes(reg *dispatch.Registry) {
	reg.DeclareType(TagCoordinates, world.Coordinates{})
	reg.DeclareType(TagEntity, world.EntityID(0))
	reg.DeclareType(TagPrototype, prototype.ID(""))
	reg.DeclareType(TagString, "")
}

// Register declares the spawn tags and adds every spawn variant, scalar and
// sequence, to reg.
func Register(reg *dispatch.Registry, store Store) error {
	DeclareTypes(reg)
	c := commands{store: store}

	scalars := []dispatch.Variant{
		c.at(),
		c.on(),
		c.in(),
		c.attached(),
	}
	for _, v := range scalars {
		if err := reg.Register(Group, v.Label, v); err != nil {
			return err
		}
		if err := reg.Register(Group, v.Label, dispatch.Lift(v)); err != nil {
			return err
		}
	}
	return nil
}

type commands struct {
	store Store
}

func (c commands) at() dispatch.Variant {
	v := dispatch.Func1(TagCoordinates, TagPrototype, TagEntity,
		func(ctx context.Context, at world.Coordinates, proto prototype.ID) (world.EntityID, error) {
			return c.store.Create(ctx, proto, at)
		})
	v.Label = "at"
	v.Doc = "Spawn a prototype at the given coordinates."
	return v
}

func (c commands) on() dispatch.Variant {
	v := dispatch.Func1(TagEntity, TagPrototype, TagEntity,
		func(ctx context.Context, target world.EntityID, proto prototype.ID) (world.EntityID, error) {
			return c.spawnOn(ctx, target, proto)
		})
	v.Label = "on"
	v.Doc = "Spawn a prototype at the target entity's coordinates."
	return v
}

func (c commands) attached() dispatch.Variant {
	v := dispatch.Func1(TagEntity, TagPrototype, TagEntity,
		func(ctx context.Context, target world.EntityID, proto prototype.ID) (world.EntityID, error) {
			return c.store.Create(ctx, proto, world.Coordinates{Parent: target})
		})
	v.Label = "attached"
	v.Doc = "Spawn a prototype parented to the target entity at offset (0, 0)."
	return v
}

func (c commands) in() dispatch.Variant {
	return dispatch.Variant{
		Label:   "in",
		Input:   pipe.ScalarOf(TagEntity),
		Params:  []pipe.Tag{TagString, TagPrototype},
		Returns: TagEntity,
		Doc:     "Spawn a prototype on the target entity and put it in the named container.",
		Body: func(ctx context.Context, in pipe.Value, args []pipe.Value) (pipe.Value, error) {
			target, ok := pipe.As[world.EntityID](in)
			if !ok {
				return pipe.Value{}, fmt.Errorf("pipe input: expected %T, got %T", target, in.Item())
			}
			name, ok := pipe.As[string](args[0])
			if !ok {
				return pipe.Value{}, fmt.Errorf("argument 1: expected string, got %T", args[0].Item())
			}
			proto, ok := pipe.As[prototype.ID](args[1])
			if !ok {
				return pipe.Value{}, fmt.Errorf("argument 2: expected %T, got %T", proto, args[1].Item())
			}

			id, note, err := c.spawnIn(ctx, target, name, proto)
			if err != nil {
				return pipe.Value{}, err
			}
			return pipe.Scalar(TagEntity, id).WithNote(note), nil
		},
	}
}

func (c commands) spawnOn(ctx context.Context, target world.EntityID, proto prototype.ID) (world.EntityID, error) {
	at, err := c.store.Coordinates(ctx, target)
	if err != nil {
		return 0, err
	}
	return c.store.Create(ctx, proto, at)
}

// spawnIn spawns on target and then tries to contain the new entity. Capability
// gaps and full containers are reported in the note, not as errors.
func (c commands) spawnIn(ctx context.Context, target world.EntityID, name string, proto prototype.ID) (world.EntityID, string, error) {
	id, err := c.spawnOn(ctx, target, proto)
	if err != nil {
		return 0, "", err
	}

	for _, want := range prototype.Containable {
		ok, err := c.store.HasCapability(ctx, id, want)
		if err != nil {
			return 0, "", err
		}
		if !ok {
			return id, fmt.Sprintf("not contained: %s lacks %s", id, want), nil
		}
	}

	ref, err := c.store.Container(ctx, target, name)
	if err != nil {
		return 0, "", err
	}
	if err := c.store.Insert(ctx, ref, id); err != nil {
		if errors.Is(err, world.ErrContainerFull) {
			return id, fmt.Sprintf("dropped: %s/%s is full", target, name), nil
		}
		return 0, "", err
	}
	return id, "", nil
}
