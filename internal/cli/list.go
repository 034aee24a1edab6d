package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/suggest"
	"github.com/aidanlsb/shed/internal/ui"
)

func listCommands(cmd *cobra.Command, args []string, _ map[string]interface{}) error {
	eng, err := newEngine(prototype.Default(), cfg.Policy())
	if err != nil {
		return handleError(cmd, ErrInternal, err, "")
	}
	defer eng.Close()

	descs := eng.reg.Export()
	if len(args) == 1 {
		group := args[0]
		if _, ok := eng.reg.Group(group); !ok {
			err := fmt.Errorf("unknown command group %q", group)
			suggestion := ""
			if s := suggest.Closest(group, eng.reg.GroupNames()); s != "" {
				suggestion = fmt.Sprintf("Did you mean %q?", s)
			}
			return handleError(cmd, ErrGroupNotFound, err, suggestion)
		}
		descs = filterGroup(descs, group)
	}

	switch {
	case isJSONOutput():
		outputSuccess(cmd, descs, &Meta{Count: len(descs)})
	case ShouldUsePipeFormat():
		rows := make([][]string, 0, len(descs))
		for _, d := range descs {
			rows = append(rows, []string{d.Group + ":" + d.Label, d.Input, strings.Join(d.Params, ","), d.Returns})
		}
		writePipeRows(cmd.OutOrStdout(), rows)
	default:
		tbl := ui.NewTable(4)
		for _, d := range descs {
			params := "(" + strings.Join(d.Params, ", ") + ")"
			tbl.AddRow(ui.Accent.Render(d.Group+":"+d.Label), d.Input+" "+params, "→ "+d.Returns, ui.Hint(d.Doc))
		}
		fmt.Fprint(cmd.OutOrStdout(), tbl.String())
	}
	return nil
}

func filterGroup(descs []dispatch.Descriptor, group string) []dispatch.Descriptor {
	var out []dispatch.Descriptor
	for _, d := range descs {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

type prototypeInfo struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Capabilities []string       `json:"capabilities"`
	Containers   map[string]int `json:"containers,omitempty"`
	Containable  bool           `json:"containable"`
}

func listPrototypes(cmd *cobra.Command, args []string, flags map[string]interface{}) error {
	catalog, err := prototype.Load(catalogPath(flags))
	if err != nil {
		return handleError(cmd, ErrCatalogInvalid, err, "")
	}
	if len(args) == 1 {
		return showPrototype(cmd, catalog, prototype.ID(args[0]))
	}

	var infos []prototypeInfo
	for _, id := range catalog.IDs() {
		p, err := catalog.Lookup(id)
		if err != nil {
			return handleError(cmd, ErrInternal, err, "")
		}
		infos = append(infos, describePrototype(p))
	}

	switch {
	case isJSONOutput():
		outputSuccess(cmd, map[string]interface{}{
			"source":     catalog.Source,
			"version":    catalog.Version,
			"prototypes": infos,
		}, &Meta{Count: len(infos)})
	case ShouldUsePipeFormat():
		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, []string{info.ID, info.Name, strings.Join(info.Capabilities, ","), formatContainers(info.Containers)})
		}
		writePipeRows(cmd.OutOrStdout(), rows)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Header(catalog.Source+" "+catalog.Version), ui.Hint(ui.Count(len(infos), "prototype", "prototypes")))
		tbl := ui.NewTable(5)
		if w := ui.TermWidth(); w > 2 {
			tbl.SetMaxWidth(w - 2)
		}
		for _, info := range infos {
			tbl.AddRow(ui.Accent.Render(info.ID), info.Name, strings.Join(info.Capabilities, ", "),
				ui.Hint(formatContainers(info.Containers)), ui.Hint(ui.Summary(info.Description)))
		}
		for _, line := range splitLines(tbl.String()) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", line)
		}
	}
	return nil
}

func showPrototype(cmd *cobra.Command, catalog *prototype.Catalog, id prototype.ID) error {
	p, err := catalog.Lookup(id)
	if err != nil {
		suggestion := ""
		if s := catalog.Suggest(id); s != "" {
			suggestion = fmt.Sprintf("Did you mean %q?", s)
		}
		return handleError(cmd, ErrPrototypeNotFound, err, suggestion)
	}
	info := describePrototype(p)

	switch {
	case isJSONOutput():
		outputSuccess(cmd, info, nil)
	case ShouldUsePipeFormat():
		writePipeRows(cmd.OutOrStdout(), [][]string{{info.ID, info.Name, strings.Join(info.Capabilities, ","),
			formatContainers(info.Containers), ui.Summary(info.Description)}})
	default:
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", ui.Header(info.ID), ui.Hint(info.Name))
		tbl := ui.NewTable(2)
		tbl.AddRow("capabilities", strings.Join(info.Capabilities, ", "))
		if len(info.Containers) > 0 {
			tbl.AddRow("containers", formatContainers(info.Containers))
		}
		tbl.AddRow("containable", strconv.FormatBool(info.Containable))
		for _, line := range splitLines(tbl.String()) {
			fmt.Fprintf(w, "  %s\n", line)
		}
		if info.Description != "" {
			fmt.Fprintln(w)
			fmt.Fprint(w, describeText(info.Description))
		}
	}
	return nil
}

// describeText renders markdown on a terminal and passes it through otherwise.
func describeText(md string) string {
	if width := ui.TermWidth(); width > 0 {
		if rendered, err := ui.RenderMarkdown(md, width-2); err == nil {
			return rendered
		}
	}
	return strings.TrimRight(md, "\n") + "\n"
}

func describePrototype(p *prototype.Prototype) prototypeInfo {
	info := prototypeInfo{
		ID:           string(p.ID),
		Name:         p.Name,
		Description:  p.Description,
		Capabilities: make([]string, 0, len(p.Capabilities)),
		Containable:  true,
	}
	for _, c := range p.Capabilities {
		info.Capabilities = append(info.Capabilities, string(c))
	}
	sort.Strings(info.Capabilities)
	for _, c := range prototype.Containable {
		if !p.Has(c) {
			info.Containable = false
		}
	}
	if len(p.Containers) > 0 {
		info.Containers = make(map[string]int, len(p.Containers))
		for name, spec := range p.Containers {
			info.Containers[name] = spec.Capacity
		}
	}
	return info
}

// formatContainers renders "storage:8 tools:∞" in name order.
func formatContainers(containers map[string]int) string {
	names := make([]string, 0, len(containers))
	for name := range containers {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		capacity := "∞"
		if n := containers[name]; n > 0 {
			capacity = strconv.Itoa(n)
		}
		parts[i] = name + ":" + capacity
	}
	return strings.Join(parts, " ")
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
