// Package scenario loads and runs scripted spawn pipelines against a fresh world.
//
// A scenario file sets up named entities and then runs a list of steps. Each
// step invokes one subcommand with a pipe value taken from literal coordinates,
// named entities, or the collected result of an earlier step.
package scenario

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/docschema"
	"github.com/aidanlsb/shed/internal/pipe"
)

// SupportedMajor is the scenario format major version this build reads.
const SupportedMajor = "v1"

//go:embed scenario.schema.json
var scenarioSchema []byte

var schema = docschema.New("scenario", scenarioSchema)

// Scenario is a parsed scenario file.
type Scenario struct {
	Version    string  `yaml:"version"`
	Name       string  `yaml:"name"`
	LiftPolicy string  `yaml:"lift_policy"`
	World      []Setup `yaml:"world"`
	Steps      []Step  `yaml:"steps"`

	Source string `yaml:"-"`
}

// Setup creates one named entity before any step runs.
type Setup struct {
	Name       string   `yaml:"name"`
	Prototype  string   `yaml:"prototype"`
	At         *Point   `yaml:"at"`
	AttachedTo string   `yaml:"attached_to"`
	With       []string `yaml:"with"`
	Without    []string `yaml:"without"`
}

// Point is a coordinate literal. Parent names a setup entity; empty is the root.
type Point struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Parent string  `yaml:"parent"`
}

// Step is one subcommand invocation.
type Step struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
	Pipe    Source `yaml:"pipe"`
	Args    []Arg  `yaml:"args"`

	group, label string
}

// Source is where a step's pipe value comes from. Exactly one field is set.
type Source struct {
	Coordinates []Point
	Entities    []string
	From        string

	// Seq is true when the literal was written as a list.
	Seq bool
}

// UnmarshalYAML decodes the single-key pipe mapping.
func (s *Source) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := n.Decode(&raw); err != nil {
		return err
	}
	for key, v := range raw {
		switch key {
		case "coordinates":
			s.Seq = v.Kind == yaml.SequenceNode
			if s.Seq {
				s.Coordinates = []Point{}
				if err := v.Decode(&s.Coordinates); err != nil {
					return err
				}
				continue
			}
			var p Point
			if err := v.Decode(&p); err != nil {
				return err
			}
			s.Coordinates = []Point{p}
		case "entity":
			s.Seq = v.Kind == yaml.SequenceNode
			if s.Seq {
				s.Entities = []string{}
				if err := v.Decode(&s.Entities); err != nil {
					return err
				}
				continue
			}
			var name string
			if err := v.Decode(&name); err != nil {
				return err
			}
			s.Entities = []string{name}
		case "from":
			if err := v.Decode(&s.From); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown pipe source %q", key)
		}
	}
	return nil
}

// Arg is one positional argument written as {tag: value}.
type Arg struct {
	Tag   pipe.Tag
	Text  string
	Point Point
}

// UnmarshalYAML decodes the single-key argument mapping.
func (a *Arg) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("argument must have exactly one key, got %d", len(raw))
	}
	for key, v := range raw {
		a.Tag = pipe.Tag(key)
		if key == "coordinates" {
			return v.Decode(&a.Point)
		}
		return v.Decode(&a.Text)
	}
	return nil
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse validates and decodes a scenario document. source names it in errors.
func Parse(data []byte, source string) (*Scenario, error) {
	if err := schema.ValidateYAML(data); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", source, err)
	}
	sc.Source = source

	version, err := docschema.CheckVersion(sc.Version, SupportedMajor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	sc.Version = version

	if err := sc.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &sc, nil
}

// check enforces the cross-references the schema cannot express: names are
// unique and only refer backwards.
func (sc *Scenario) check() error {
	entities := make(map[string]bool)
	for i, s := range sc.World {
		if entities[s.Name] {
			return fmt.Errorf("world[%d]: duplicate entity name %q", i, s.Name)
		}
		if s.AttachedTo != "" && !entities[s.AttachedTo] {
			return fmt.Errorf("world[%d] %s: attached_to %q is not defined above it", i, s.Name, s.AttachedTo)
		}
		if s.At != nil && s.At.Parent != "" && !entities[s.At.Parent] {
			return fmt.Errorf("world[%d] %s: parent %q is not defined above it", i, s.Name, s.At.Parent)
		}
		entities[s.Name] = true
	}

	steps := make(map[string]bool)
	for i := range sc.Steps {
		st := &sc.Steps[i]
		if st.Name == "" {
			st.Name = fmt.Sprintf("step%d", i+1)
		}
		if steps[st.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, st.Name)
		}

		group, label, err := dispatch.SplitCommand(st.Command)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		st.group, st.label = group, label

		if st.Pipe.From != "" && !steps[st.Pipe.From] {
			return fmt.Errorf("step %s: from %q is not an earlier step", st.Name, st.Pipe.From)
		}
		for _, name := range st.Pipe.Entities {
			if !entities[name] {
				return fmt.Errorf("step %s: unknown entity %q", st.Name, name)
			}
		}
		for _, p := range st.Pipe.Coordinates {
			if p.Parent != "" && !entities[p.Parent] {
				return fmt.Errorf("step %s: unknown parent %q", st.Name, p.Parent)
			}
		}
		for j, a := range st.Args {
			ref := a.Point.Parent
			if a.Tag == "entity" {
				ref = a.Text
			}
			if ref != "" && !entities[ref] {
				return fmt.Errorf("step %s: args[%d]: unknown entity %q", st.Name, j, ref)
			}
		}
		steps[st.Name] = true
	}
	return nil
}

// Group returns the command group of the step.
func (st Step) Group() string { return st.group }

// Label returns the subcommand label of the step.
func (st Step) Label() string { return st.label }
