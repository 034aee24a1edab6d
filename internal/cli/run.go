package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/shed/internal/atomicfile"
	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/scenario"
	"github.com/aidanlsb/shed/internal/ui"
	"github.com/aidanlsb/shed/internal/world"
)

func runScenario(cmd *cobra.Command, args []string, flags map[string]interface{}) error {
	start := time.Now()
	path := args[0]

	sc, err := scenario.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return handleError(cmd, ErrScenarioNotFound, err, "")
		}
		return handleError(cmd, ErrScenarioInvalid, err, "")
	}

	policy, err := resolvePolicy(flags, sc)
	if err != nil {
		return handleError(cmd, ErrInvalidInput, err, "Use --lift-policy continue or --lift-policy abort")
	}

	catalog, err := prototype.Load(catalogPath(flags))
	if err != nil {
		return handleError(cmd, ErrCatalogInvalid, err, "")
	}

	eng, err := newEngine(catalog, policy)
	if err != nil {
		return handleError(cmd, ErrInternal, err, "")
	}
	defer eng.Close()

	logger.Info("running scenario", "path", path, "steps", len(sc.Steps), "lift_policy", string(policy))
	rep, err := scenario.NewRunner(eng.inv, eng.store, logger).Run(cmd.Context(), sc)
	if err != nil {
		return handleError(cmd, ErrSetupFailed, err, "")
	}

	if out, _ := flags["report"].(string); out != "" {
		out = reportPath(out, sc)
		if err := atomicfile.WriteJSON(out, rep); err != nil {
			return handleError(cmd, ErrReportWrite, err, "Check that the directory exists and is writable")
		}
		logger.Debug("wrote report", "path", out)
	}

	showWorld, _ := flags["world"].(bool)
	if !showWorld && !isJSONOutput() {
		rep.World = nil
	}

	strict, _ := flags["strict"].(bool)
	failures := rep.Failures()
	if strict && failures > 0 && isJSONOutput() {
		return handleErrorWithDetails(cmd, ErrStepsFailed,
			fmt.Sprintf("%d of %d steps failed", failures, len(rep.Steps)), "", rep)
	}

	switch {
	case isJSONOutput():
		outputSuccessWithWarnings(cmd, rep, reportWarnings(rep), &Meta{
			Count:      len(rep.Steps),
			DurationMs: time.Since(start).Milliseconds(),
		})
	case ShouldUsePipeFormat():
		writePipeRows(cmd.OutOrStdout(), reportRows(rep))
	default:
		printReport(cmd.OutOrStdout(), rep)
	}

	if strict && failures > 0 {
		return fmt.Errorf("%d of %d steps failed", failures, len(rep.Steps))
	}
	return nil
}

// reportPath names the report file after the scenario when out is a directory.
func reportPath(out string, sc *scenario.Scenario) string {
	st, err := os.Stat(out)
	if err != nil || !st.IsDir() {
		return out
	}
	name := sc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(sc.Source), filepath.Ext(sc.Source))
	}
	base := slug.Make(name)
	if base == "" {
		base = "report"
	}
	return filepath.Join(out, base+".json")
}

// resolvePolicy applies --lift-policy, then the scenario's lift_policy, then config.
func resolvePolicy(flags map[string]interface{}, sc *scenario.Scenario) (dispatch.LiftPolicy, error) {
	if p, _ := flags["lift-policy"].(string); p != "" {
		return dispatch.ParseLiftPolicy(p)
	}
	if sc.LiftPolicy != "" {
		return dispatch.ParseLiftPolicy(sc.LiftPolicy)
	}
	return cfg.Policy(), nil
}

func reportWarnings(rep *scenario.Report) []Warning {
	var warnings []Warning
	for _, s := range rep.Steps {
		if s.Error != "" {
			warnings = append(warnings, Warning{Code: WarnStepFailed, Message: s.Error, Ref: s.Name})
			continue
		}
		for _, o := range s.Outcomes {
			if o.Error != "" {
				warnings = append(warnings, Warning{
					Code:    WarnElementFailed,
					Message: o.Error,
					Ref:     s.Name + "[" + strconv.Itoa(o.Index) + "]",
				})
			}
		}
	}
	return warnings
}

// reportRows flattens a report to step, index, status, value, detail.
func reportRows(rep *scenario.Report) [][]string {
	var rows [][]string
	for _, s := range rep.Steps {
		if s.Error != "" {
			rows = append(rows, []string{s.Name, "-", "error", "", s.Error})
			continue
		}
		for _, o := range s.Outcomes {
			switch {
			case o.Error != "":
				rows = append(rows, []string{s.Name, strconv.Itoa(o.Index), "error", "", o.Error})
			case o.Note != "":
				rows = append(rows, []string{s.Name, strconv.Itoa(o.Index), "note", o.Value, o.Note})
			default:
				rows = append(rows, []string{s.Name, strconv.Itoa(o.Index), "ok", o.Value, ""})
			}
		}
	}
	return rows
}

// placement describes where an entity is held and what it holds.
func placement(e world.Entity) string {
	var parts []string
	if e.Container != "" {
		parts = append(parts, "in "+e.Container)
	}
	names := make([]string, 0, len(e.Contents))
	for name := range e.Contents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ids := make([]string, len(e.Contents[name]))
		for i, id := range e.Contents[name] {
			ids[i] = id.String()
		}
		parts = append(parts, name+"["+strings.Join(ids, " ")+"]")
	}
	return strings.Join(parts, " ")
}

func printReport(w io.Writer, rep *scenario.Report) {
	width := 0
	if tw := ui.TermWidth(); tw > 4 {
		width = tw - 4
	}

	fmt.Fprintf(w, "%s %s\n", ui.Header(rep.Scenario), ui.Hint(ui.Count(len(rep.Steps), "step", "steps")))

	for _, s := range rep.Steps {
		title := fmt.Sprintf("%s  %s", s.Name, ui.Accent.Render(s.Command))
		if s.Error != "" {
			fmt.Fprintln(w, ui.Error(title))
			fmt.Fprintf(w, "    %s\n", s.Error)
			continue
		}

		types := ui.Hint(s.Input + " → " + s.Output)
		if s.Failed() {
			fmt.Fprintf(w, "%s  %s\n", ui.Warning(title), types)
		} else {
			fmt.Fprintf(w, "%s  %s\n", ui.Success(title), types)
		}

		tbl := ui.NewTable(3)
		tbl.SetMaxWidth(width)
		for _, o := range s.Outcomes {
			idx := ui.Hint(strconv.Itoa(o.Index))
			switch {
			case o.Error != "":
				tbl.AddRow(idx, ui.Error(""), o.Error)
			case o.Note != "":
				tbl.AddRow(idx, ui.Accent.Render(o.Value), ui.Note(o.Note))
			default:
				tbl.AddRow(idx, ui.Accent.Render(o.Value))
			}
		}
		for _, line := range splitLines(tbl.String()) {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	if len(rep.World) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", ui.Header("world"), ui.Hint(ui.Count(len(rep.World), "entity", "entities")))
		tbl := ui.NewTable(5)
		tbl.SetMaxWidth(width)
		for _, e := range rep.World {
			tbl.AddRow(ui.Accent.Render(e.ID.String()), string(e.Prototype), e.At.String(),
				"@ "+e.Position.String(), ui.Hint(placement(e)))
		}
		for _, line := range splitLines(tbl.String()) {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	if n := rep.Failures(); n > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.Warning(fmt.Sprintf("%d of %d steps had failures", n, len(rep.Steps))))
	}
}
