package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/logging"
	"github.com/aidanlsb/shed/internal/pipe"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/spawn"
	"github.com/aidanlsb/shed/internal/world"
)

// Report is the outcome of running a scenario.
type Report struct {
	Scenario string                    `json:"scenario"`
	Entities map[string]world.EntityID `json:"entities"`
	Steps    []StepReport              `json:"steps"`
	World    []world.Entity            `json:"world"`
}

// StepReport records one step. Error is set when the step could not run at
// all; per-element failures are recorded on the outcomes.
type StepReport struct {
	Name     string          `json:"name"`
	Command  string          `json:"command"`
	Input    string          `json:"input"`
	Output   string          `json:"output,omitempty"`
	Outcomes []OutcomeReport `json:"outcomes,omitempty"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`
}

// OutcomeReport is one produced element.
type OutcomeReport struct {
	Index int    `json:"index"`
	Value string `json:"value,omitempty"`
	Note  string `json:"note,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the step or any of its elements failed.
func (s StepReport) Failed() bool {
	if s.Error != "" {
		return true
	}
	for _, o := range s.Outcomes {
		if o.Error != "" {
			return true
		}
	}
	return false
}

// Failures counts failed steps.
func (r *Report) Failures() int {
	n := 0
	for _, s := range r.Steps {
		if s.Failed() {
			n++
		}
	}
	return n
}

// Runner executes scenarios against one world.
type Runner struct {
	inv   *dispatch.Invoker
	store *world.Store
	log   *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(inv *dispatch.Invoker, store *world.Store, log *slog.Logger) *Runner {
	if log == nil {
		log = logging.Discard()
	}
	return &Runner{inv: inv, store: store, log: log}
}

// Run builds the scenario's world and runs every step in order. Setup
// failures abort the run. A step that fails is recorded and later steps still
// run, except those that take their pipe from it.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	names, err := r.setup(ctx, sc.World)
	if err != nil {
		return nil, err
	}

	rep := &Report{Scenario: sc.Name, Entities: names}
	if rep.Scenario == "" {
		rep.Scenario = sc.Source
	}

	results := make(map[string]pipe.Value)
	for _, st := range sc.Steps {
		sr, out := r.runStep(ctx, st, names, results)
		if out != nil {
			results[st.Name] = *out
		}
		rep.Steps = append(rep.Steps, sr)
	}

	rep.World, err = r.store.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot world: %w", err)
	}
	return rep, nil
}

func (r *Runner) setup(ctx context.Context, entries []Setup) (map[string]world.EntityID, error) {
	names := make(map[string]world.EntityID, len(entries))
	for _, s := range entries {
		at := world.Coordinates{}
		switch {
		case s.AttachedTo != "":
			at.Parent = names[s.AttachedTo]
		case s.At != nil:
			at = coordinates(*s.At, names)
		}

		id, err := r.store.Create(ctx, prototype.ID(s.Prototype), at)
		if err != nil {
			return nil, fmt.Errorf("setup %s: %w", s.Name, err)
		}
		for _, c := range s.With {
			if err := r.store.AddCapability(ctx, id, prototype.Capability(c)); err != nil {
				return nil, fmt.Errorf("setup %s: %w", s.Name, err)
			}
		}
		for _, c := range s.Without {
			if err := r.store.RemoveCapability(ctx, id, prototype.Capability(c)); err != nil {
				return nil, fmt.Errorf("setup %s: %w", s.Name, err)
			}
		}
		names[s.Name] = id
		r.log.Debug("setup entity", "name", s.Name, "id", id.String(), "prototype", s.Prototype, "at", at.String())
	}
	return names, nil
}

// runStep invokes one step. The returned value is the step's result with every
// element already produced, so later steps can read it without re-running it.
func (r *Runner) runStep(ctx context.Context, st Step, names map[string]world.EntityID, results map[string]pipe.Value) (StepReport, *pipe.Value) {
	sr := StepReport{Name: st.Name, Command: st.Group() + ":" + st.Label()}

	in, err := input(st.Pipe, names, results)
	if err != nil {
		return sr.fail(err), nil
	}
	sr.Input = in.Type().String()

	args := make([]pipe.Value, len(st.Args))
	for i, a := range st.Args {
		args[i] = argument(a, names)
	}

	out, err := r.inv.Invoke(ctx, st.Group(), st.Label(), in, args...)
	if err != nil {
		r.log.Warn("step failed", "step", st.Name, "command", sr.Command, "error", err)
		return sr.fail(err), nil
	}
	sr.Output = out.Type().String()

	result := out.Materialize()
	for i, o := range result.Collect() {
		rec := OutcomeReport{Index: i, Note: o.Note}
		if o.Err != nil {
			rec.Error = o.Err.Error()
		} else {
			rec.Value = fmt.Sprint(o.Value)
		}
		sr.Outcomes = append(sr.Outcomes, rec)
	}
	return sr, &result
}

func (sr StepReport) fail(err error) StepReport {
	sr.Error = err.Error()
	var coder dispatch.Coder
	if errors.As(err, &coder) {
		sr.Code = coder.Code()
	}
	return sr
}

func input(src Source, names map[string]world.EntityID, results map[string]pipe.Value) (pipe.Value, error) {
	switch {
	case src.From != "":
		v, ok := results[src.From]
		if !ok {
			return pipe.Value{}, fmt.Errorf("input step %q did not produce a result", src.From)
		}
		return v, nil
	case src.Entities != nil:
		ids := make([]world.EntityID, len(src.Entities))
		for i, name := range src.Entities {
			ids[i] = names[name]
		}
		if !src.Seq {
			return pipe.Scalar(spawn.TagEntity, ids[0]), nil
		}
		return pipe.SequenceOf(spawn.TagEntity, ids...), nil
	case src.Coordinates != nil:
		points := make([]world.Coordinates, len(src.Coordinates))
		for i, p := range src.Coordinates {
			points[i] = coordinates(p, names)
		}
		if !src.Seq {
			return pipe.Scalar(spawn.TagCoordinates, points[0]), nil
		}
		return pipe.SequenceOf(spawn.TagCoordinates, points...), nil
	default:
		return pipe.Value{}, errors.New("step has no pipe input")
	}
}

func argument(a Arg, names map[string]world.EntityID) pipe.Value {
	switch a.Tag {
	case spawn.TagCoordinates:
		return pipe.Scalar(a.Tag, coordinates(a.Point, names))
	case spawn.TagEntity:
		return pipe.Scalar(a.Tag, names[a.Text])
	case spawn.TagPrototype:
		return pipe.Scalar(a.Tag, prototype.ID(a.Text))
	default:
		return pipe.Scalar(a.Tag, a.Text)
	}
}

func coordinates(p Point, names map[string]world.EntityID) world.Coordinates {
	c := world.Coordinates{X: p.X, Y: p.Y}
	if p.Parent != "" {
		c.Parent = names[p.Parent]
	}
	return c
}
