// Package dispatch resolves and invokes typed subcommand variants.
//
// A subcommand (e.g. "spawn:at") may have several variants, each declaring the
// type of value it accepts from the pipe. The resolver picks exactly one for a
// given pipe value, lifting a scalar variant over a sequence when no explicit
// sequence variant exists. The invoker binds the remaining arguments and runs it.
package dispatch

import (
	"context"
	"reflect"
	"sort"

	"github.com/aidanlsb/shed/internal/invariant"
	"github.com/aidanlsb/shed/internal/pipe"
)

// Body is the callable part of a variant. Scalar variants receive a scalar
// input and return a scalar; sequence variants return a lazy sequence.
type Body func(ctx context.Context, in pipe.Value, args []pipe.Value) (pipe.Value, error)

// Variant is one implementation of one subcommand.
type Variant struct {
	Label   string
	Input   pipe.Type
	Params  []pipe.Tag
	Returns pipe.Tag
	Body    Body

	// Lifted marks variants built with Lift, whether registered explicitly
	// or synthesized by the resolver.
	Lifted bool

	// Doc is a one-line description shown by front ends.
	Doc string
}

// Output returns the type produced by the variant.
func (v Variant) Output() pipe.Type {
	return pipe.Type{Elem: v.Returns, Seq: v.Input.Seq}
}

// CommandGroup is a named family of subcommands such as "spawn".
type CommandGroup struct {
	Name     string
	labels   []string
	variants map[string][]Variant
}

// Labels returns subcommand labels in registration order.
func (g *CommandGroup) Labels() []string {
	return append([]string(nil), g.labels...)
}

// Registry holds every command group. Registration happens once at startup
// and is not safe for concurrent use; after Seal the registry is read-only.
type Registry struct {
	groups []*CommandGroup
	byName map[string]*CommandGroup
	types  map[pipe.Tag]reflect.Type
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*CommandGroup),
		types:  make(map[pipe.Tag]reflect.Type),
	}
}

// DeclareType records the Go type carried by values of tag. Argument binding
// rejects values whose payload is not of that type.
func (r *Registry) DeclareType(tag pipe.Tag, sample any) {
	invariant.Precondition(tag != "", "tag must not be empty")
	invariant.NotNil(sample, "sample")
	r.types[tag] = reflect.TypeOf(sample)
}

// Register adds a variant to (group, label).
func (r *Registry) Register(group, label string, v Variant) error {
	invariant.Precondition(group != "", "group must not be empty")
	invariant.Precondition(label != "", "label must not be empty")
	invariant.NotNil(v.Body, "variant body")
	invariant.Precondition(v.Input.Elem != "", "%s:%s: variant input tag must not be empty", group, label)

	if r.sealed {
		return &RegistryClosedError{Group: group, Label: label}
	}

	g, ok := r.byName[group]
	if !ok {
		g = &CommandGroup{Name: group, variants: make(map[string][]Variant)}
		r.byName[group] = g
		r.groups = append(r.groups, g)
	}

	for _, existing := range g.variants[label] {
		if existing.Input == v.Input {
			return &DuplicateVariantError{Group: group, Label: label, Input: v.Input}
		}
	}

	v.Label = label
	v.Params = append([]pipe.Tag(nil), v.Params...)
	if _, seen := g.variants[label]; !seen {
		g.labels = append(g.labels, label)
	}
	g.variants[label] = append(g.variants[label], v)
	return nil
}

// MustRegister is Register for static declarations; it panics on error.
func (r *Registry) MustRegister(group, label string, v Variant) {
	if err := r.Register(group, label, v); err != nil {
		panic(err)
	}
}

// Seal ends the registration phase.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool { return r.sealed }

// Lookup returns the variants registered for (group, label) in registration order.
func (r *Registry) Lookup(group, label string) []Variant {
	g, ok := r.byName[group]
	if !ok {
		return nil
	}
	return append([]Variant(nil), g.variants[label]...)
}

// Group returns a command group by name.
func (r *Registry) Group(name string) (*CommandGroup, bool) {
	g, ok := r.byName[name]
	return g, ok
}

// GroupNames returns group names sorted alphabetically.
func (r *Registry) GroupNames() []string {
	names := make([]string, 0, len(r.groups))
	for _, g := range r.groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	return names
}

// Descriptor is an exported, body-less view of a variant.
type Descriptor struct {
	Group   string   `json:"group"`
	Label   string   `json:"label"`
	Input   string   `json:"input"`
	Params  []string `json:"params"`
	Returns string   `json:"returns"`
	Lifted  bool     `json:"lifted,omitempty"`
	Doc     string   `json:"doc,omitempty"`
}

// Export returns every registered variant, grouped and in registration order.
func (r *Registry) Export() []Descriptor {
	var out []Descriptor
	for _, g := range r.groups {
		for _, label := range g.labels {
			for _, v := range g.variants[label] {
				params := make([]string, len(v.Params))
				for i, p := range v.Params {
					params[i] = string(p)
				}
				out = append(out, Descriptor{
					Group:   g.Name,
					Label:   label,
					Input:   v.Input.String(),
					Params:  params,
					Returns: v.Output().String(),
					Lifted:  v.Lifted,
					Doc:     v.Doc,
				})
			}
		}
	}
	return out
}

func (r *Registry) goType(tag pipe.Tag) (reflect.Type, bool) {
	t, ok := r.types[tag]
	return t, ok
}
