// Package commands provides command metadata and Cobra command generation.
package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Handler executes a command with its parsed args and flag values.
type Handler func(cmd *cobra.Command, args []string, flags map[string]interface{}) error

// Completer returns candidate values for an argument whose DynamicComp names it.
type Completer func(cmd *cobra.Command, toComplete string) []string

// Completers maps DynamicComp kinds ("groups", "prototypes") to completers.
type Completers map[string]Completer

// GenerateCobraCommand creates a Cobra command from registry metadata.
// Use, Short, Long, Args and flags come from the registry; the handler
// supplies the behavior. Dynamic argument completion uses the first
// Completers given.
func GenerateCobraCommand(name string, handler Handler, completers ...Completers) *cobra.Command {
	meta, ok := Registry[name]
	if !ok {
		return nil
	}

	use := name
	for _, arg := range meta.Args {
		if arg.Required {
			use += fmt.Sprintf(" <%s>", arg.Name)
		} else {
			use += fmt.Sprintf(" [%s]", arg.Name)
		}
	}

	longDesc := meta.Description
	if meta.LongDesc != "" {
		longDesc = meta.LongDesc
	}
	if len(meta.Examples) > 0 {
		longDesc += "\n\nExamples:\n"
		for _, ex := range meta.Examples {
			longDesc += "  " + ex + "\n"
		}
	}

	minArgs := 0
	maxArgs := len(meta.Args)
	for _, arg := range meta.Args {
		if arg.Required {
			minArgs++
		}
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: meta.Description,
		Long:  longDesc,
	}

	if minArgs == maxArgs {
		if minArgs == 0 {
			cmd.Args = cobra.NoArgs
		} else {
			cmd.Args = cobra.ExactArgs(minArgs)
		}
	} else {
		cmd.Args = cobra.RangeArgs(minArgs, maxArgs)
	}

	for _, flag := range meta.Flags {
		switch flag.Type {
		case FlagTypeBool:
			cmd.Flags().BoolP(flag.Name, flag.Short, flag.Default == "true", flag.Description)
		default:
			cmd.Flags().StringP(flag.Name, flag.Short, flag.Default, flag.Description)
		}
	}

	if len(meta.Args) > 0 {
		var dyn Completers
		if len(completers) > 0 {
			dyn = completers[0]
		}
		cmd.ValidArgsFunction = generateCompletionFunc(meta.Args, dyn)
	}

	if handler != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			flags := make(map[string]interface{})
			for _, flag := range meta.Flags {
				switch flag.Type {
				case FlagTypeBool:
					val, _ := cmd.Flags().GetBool(flag.Name)
					flags[flag.Name] = val
				default:
					val, _ := cmd.Flags().GetString(flag.Name)
					flags[flag.Name] = val
				}
			}
			return handler(cmd, args, flags)
		}
	}

	return cmd
}

// generateCompletionFunc creates a shell completion function based on arg metadata.
func generateCompletionFunc(args []ArgMeta, dyn Completers) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, completedArgs []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		argIndex := len(completedArgs)
		if argIndex >= len(args) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		arg := args[argIndex]

		if len(arg.Completions) > 0 {
			return withPrefix(arg.Completions, toComplete), cobra.ShellCompDirectiveNoFileComp
		}

		if arg.DynamicComp == "files" {
			return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
		}
		if complete, ok := dyn[arg.DynamicComp]; ok {
			return withPrefix(complete(cmd, toComplete), toComplete), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func withPrefix(candidates []string, prefix string) []string {
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// GetCommandMeta returns the metadata for a command.
func GetCommandMeta(name string) (Meta, bool) {
	meta, ok := Registry[name]
	return meta, ok
}

// AllCommandNames returns all registered command names, sorted.
func AllCommandNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
