package spawn

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/pipe"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/world"
)

type fixture struct {
	store *world.Store
	inv   *dispatch.Invoker
}

func newFixture(t *testing.T, opts ...dispatch.Option) *fixture {
	t.Helper()
	store, err := world.Open(prototype.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg := dispatch.NewRegistry()
	require.NoError(t, Register(reg, store))
	reg.Seal()
	return &fixture{store: store, inv: dispatch.NewInvoker(reg, opts...)}
}

func (f *fixture) create(t *testing.T, proto prototype.ID, at world.Coordinates) world.EntityID {
	t.Helper()
	id, err := f.store.Create(context.Background(), proto, at)
	require.NoError(t, err)
	return id
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func proto(id prototype.ID) pipe.Value { return pipe.Scalar(TagPrototype, id) }

func entity(id world.EntityID) pipe.Value { return pipe.Scalar(TagEntity, id) }

func TestSpawnAtSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	points := []world.Coordinates{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: -3, Y: 4.5}}

	out, err := f.inv.Invoke(ctx, Group, "at", pipe.SequenceOf(TagCoordinates, points...), proto("Crate"))
	require.NoError(t, err)
	require.True(t, out.IsSequence())
	assert.Equal(t, pipe.SeqOf(TagEntity), out.Type())
	assert.Equal(t, 0, f.count(t), "nothing spawns until the sequence is consumed")

	outs := out.Collect()
	require.Len(t, outs, 3)

	seen := map[world.EntityID]bool{}
	for i, o := range outs {
		require.True(t, o.OK(), "element %d: %v", i, o.Err)
		id := o.Value.(world.EntityID)
		assert.False(t, seen[id], "duplicate entity %s", id)
		seen[id] = true

		at, err := f.store.Coordinates(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, points[i], at)
	}
}

func TestSpawnAtScalar(t *testing.T) {
	f := newFixture(t)
	out, err := f.inv.Invoke(context.Background(), Group, "at", pipe.Scalar(TagCoordinates, world.Coordinates{X: 7}), proto("Wrench"))
	require.NoError(t, err)
	require.False(t, out.IsSequence())

	p, err := f.store.Prototype(context.Background(), out.Item().(world.EntityID))
	require.NoError(t, err)
	assert.Equal(t, prototype.ID("Wrench"), p)
}

func TestSpawnOn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := f.create(t, "Crate", world.Coordinates{X: 4, Y: -1})

	out, err := f.inv.Invoke(ctx, Group, "on", entity(target), proto("Wrench"))
	require.NoError(t, err)

	at, err := f.store.Coordinates(ctx, out.Item().(world.EntityID))
	require.NoError(t, err)
	assert.Equal(t, world.Coordinates{X: 4, Y: -1}, at)
}

func TestSpawnAttached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target := f.create(t, "Crate", world.Coordinates{X: 9, Y: 9})

	out, err := f.inv.Invoke(ctx, Group, "attached", entity(target), proto("Light"))
	require.NoError(t, err)

	at, err := f.store.Coordinates(ctx, out.Item().(world.EntityID))
	require.NoError(t, err)
	assert.Equal(t, world.Coordinates{Parent: target, X: 0, Y: 0}, at)
}

func TestSpawnInContains(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	crate := f.create(t, "Crate", world.Coordinates{X: 2})

	out, err := f.inv.Invoke(ctx, Group, "in", entity(crate), pipe.Scalar(TagString, "storage"), proto("Wrench"))
	require.NoError(t, err)
	assert.Empty(t, out.Note())

	id := out.Item().(world.EntityID)
	ref, ok, err := f.store.ContainerOf(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, crate, ref.Owner)
	assert.Equal(t, "storage", ref.Name)
}

func TestSpawnInWithoutPhysicsIsNotContained(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// Neither the target nor the spawned prototype has physics.
	target := f.create(t, "Marker", world.Coordinates{X: 1, Y: 1})

	out, err := f.inv.Invoke(ctx, Group, "in", entity(target), pipe.Scalar(TagString, "storage"), proto("Marker"))
	require.NoError(t, err, "a capability gap is not an error")

	id := out.Item().(world.EntityID)
	assert.Contains(t, out.Note(), "not contained")
	assert.Contains(t, out.Note(), string(prototype.Physics))

	_, ok, err := f.store.ContainerOf(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	at, err := f.store.Coordinates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, world.Coordinates{X: 1, Y: 1}, at)
}

func TestSpawnInFullContainerDrops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	locker := f.create(t, "Locker", world.Coordinates{X: 5, Y: 5})
	targets := pipe.SequenceOf(TagEntity, locker, locker, locker)

	out, err := f.inv.Invoke(ctx, Group, "in", targets, pipe.Scalar(TagString, "storage"), proto("Wrench"))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 3)
	for _, o := range outs {
		require.True(t, o.OK(), o.Err)
	}
	assert.Empty(t, outs[0].Note)
	assert.Empty(t, outs[1].Note)
	assert.Contains(t, outs[2].Note, "dropped")

	dropped := outs[2].Value.(world.EntityID)
	_, ok, err := f.store.ContainerOf(ctx, dropped)
	require.NoError(t, err)
	assert.False(t, ok)
	at, err := f.store.Coordinates(ctx, dropped)
	require.NoError(t, err)
	assert.Equal(t, world.Coordinates{X: 5, Y: 5}, at)

	ref, err := f.store.Container(ctx, locker, "storage")
	require.NoError(t, err)
	held, err := f.store.Contents(ctx, ref)
	require.NoError(t, err)
	if diff := cmp.Diff([]world.EntityID{outs[0].Value.(world.EntityID), outs[1].Value.(world.EntityID)}, held); diff != "" {
		t.Errorf("locker contents mismatch (-want +got):\n%s", diff)
	}
}

func TestSpawnInMissingContainer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	wrench := f.create(t, "Wrench", world.Coordinates{})

	_, err := f.inv.Invoke(ctx, Group, "in", entity(wrench), pipe.Scalar(TagString, "storage"), proto("Wrench"))
	require.Error(t, err)
	assert.ErrorIs(t, err, world.ErrContainerNotFound)
}

func TestSpawnInSequenceContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	crate := f.create(t, "Crate", world.Coordinates{})
	wrench := f.create(t, "Wrench", world.Coordinates{})

	out, err := f.inv.Invoke(ctx, Group, "in", pipe.SequenceOf(TagEntity, crate, wrench, crate),
		pipe.Scalar(TagString, "storage"), proto("Wrench"))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 3)
	assert.True(t, outs[0].OK())
	assert.True(t, outs[2].OK())

	var elemErr *dispatch.ElementError
	require.ErrorAs(t, outs[1].Err, &elemErr)
	assert.Equal(t, 1, elemErr.Index)
	assert.Equal(t, wrench, elemErr.Input)
	assert.True(t, errors.Is(outs[1].Err, world.ErrContainerNotFound))
}

func TestSpawnUnknownPrototypeFailsElement(t *testing.T) {
	f := newFixture(t, dispatch.WithPolicy(dispatch.PolicyAbort))
	points := pipe.SequenceOf(TagCoordinates, world.Coordinates{}, world.Coordinates{X: 1})

	out, err := f.inv.Invoke(context.Background(), Group, "at", points, proto("Crat"))
	require.NoError(t, err)

	outs := out.Collect()
	require.Len(t, outs, 1, "abort stops after the first failure")
	assert.ErrorIs(t, outs[0].Err, prototype.ErrUnknownPrototype)
	assert.Equal(t, 0, f.count(t))
}

func TestSequenceVariantsAreExplicit(t *testing.T) {
	f := newFixture(t)
	for _, label := range []string{"at", "on", "in", "attached"} {
		in := pipe.SequenceOf[world.EntityID](TagEntity)
		if label == "at" {
			in = pipe.SequenceOf[world.Coordinates](TagCoordinates)
		}
		call, err := f.inv.Resolve(Group, label, in)
		require.NoError(t, err, label)
		assert.False(t, call.Synthesized, "%s: sequence variant should be registered, not synthesized", label)
		assert.True(t, call.Variant.Lifted, label)
	}
}

func TestSpawnBindingFailureHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	crate := f.create(t, "Crate", world.Coordinates{})

	_, err := f.inv.Invoke(context.Background(), Group, "in", entity(crate), proto("Wrench"), pipe.Scalar(TagString, "storage"))
	var bind *dispatch.ArgumentBindingError
	require.ErrorAs(t, err, &bind)
	assert.Equal(t, 0, bind.Position)
	assert.Equal(t, 1, f.count(t))
}

func TestSpawnWrongPipeType(t *testing.T) {
	f := newFixture(t)
	_, err := f.inv.Invoke(context.Background(), Group, "on", pipe.Scalar(TagCoordinates, world.Coordinates{}), proto("Crate"))
	var nm *dispatch.NoMatchingImplementationError
	require.ErrorAs(t, err, &nm)
}

func TestRegisterTwiceIsDuplicate(t *testing.T) {
	store, err := world.Open(prototype.Default())
	require.NoError(t, err)
	defer store.Close()

	reg := dispatch.NewRegistry()
	require.NoError(t, Register(reg, store))
	err = Register(reg, store)
	var dup *dispatch.DuplicateVariantError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, Group, dup.Group)
}
