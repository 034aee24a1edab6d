package cli

import (
	"github.com/spf13/cobra"

	"github.com/aidanlsb/shed/internal/commands"
	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/prototype"
)

// completers feed dynamic argument completion. Config is not loaded during
// completion, so only flags and built-in defaults are consulted.
func completers() commands.Completers {
	return commands.Completers{
		"groups":     completeGroups,
		"prototypes": completePrototypes,
	}
}

func completeGroups(_ *cobra.Command, _ string) []string {
	eng, err := newEngine(prototype.Default(), dispatch.PolicyContinue)
	if err != nil {
		return nil
	}
	defer eng.Close()
	return eng.reg.GroupNames()
}

func completePrototypes(cmd *cobra.Command, _ string) []string {
	path, _ := cmd.Flags().GetString("catalog")
	catalog, err := prototype.Load(path)
	if err != nil {
		return nil
	}
	ids := catalog.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
