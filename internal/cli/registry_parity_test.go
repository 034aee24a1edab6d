package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/shed/internal/commands"
)

func findCommand(root *cobra.Command, name string) (*cobra.Command, bool) {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

func TestCommandFlagsMatchRegistry(t *testing.T) {
	root := newRootCmd()

	for _, name := range commands.AllCommandNames() {
		t.Run(name, func(t *testing.T) {
			meta, _ := commands.GetCommandMeta(name)
			cmd, ok := findCommand(root, name)
			if !ok {
				t.Fatalf("%s command missing from CLI tree", name)
			}

			cliFlags := make(map[string]struct{})
			cmd.LocalNonPersistentFlags().VisitAll(func(flag *pflag.Flag) {
				if flag.Name == "help" {
					return
				}
				cliFlags[flag.Name] = struct{}{}
			})

			registryFlags := make(map[string]struct{}, len(meta.Flags))
			for _, flag := range meta.Flags {
				registryFlags[flag.Name] = struct{}{}
			}

			for name := range cliFlags {
				if _, ok := registryFlags[name]; !ok {
					t.Errorf("CLI flag %q is missing from registry metadata", name)
				}
			}
			for name := range registryFlags {
				if _, ok := cliFlags[name]; !ok {
					t.Errorf("registry flag %q is missing from CLI command", name)
				}
			}
		})
	}
}

func TestEveryRunnableCommandHasMetadata(t *testing.T) {
	for _, cmd := range newRootCmd().Commands() {
		if !cmd.Runnable() || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		if _, ok := commands.GetCommandMeta(cmd.Name()); !ok {
			t.Errorf("command %q has no registry metadata", cmd.Name())
		}
	}
}
