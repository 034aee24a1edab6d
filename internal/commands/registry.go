// Package commands provides a central registry of shed CLI commands.
// This registry is the single source of truth for command metadata.
package commands

// Meta defines metadata for a CLI command, used to generate Cobra commands.
type Meta struct {
	Name        string     // Command name (e.g., "run", "commands")
	Description string     // Short description
	LongDesc    string     // Long description (for --help)
	Args        []ArgMeta  // Positional arguments
	Flags       []FlagMeta // Command flags
	Examples    []string   // Usage examples
}

// ArgMeta defines a positional argument.
type ArgMeta struct {
	Name        string   // Argument name
	Description string   // Description
	Required    bool     // Is this argument required?
	Completions []string // Static completions (if any)
	DynamicComp string   // Dynamic completion type: "files", "groups", "prototypes"
}

// FlagMeta defines a command flag.
type FlagMeta struct {
	Name        string   // Flag name (e.g., "lift-policy")
	Short       string   // Short flag (e.g., "w" for -w)
	Description string   // Description
	Type        FlagType // Type of flag
	Default     string   // Default value
}

// FlagType represents the type of a flag.
type FlagType string

const (
	FlagTypeString FlagType = "string"
	FlagTypeBool   FlagType = "bool"
)

// Registry holds all registered commands.
var Registry = map[string]Meta{
	"run": {
		Name:        "run",
		Description: "Run a scenario file against a fresh world",
		LongDesc: `Builds the world described by the scenario, then runs each step in order.

Each step invokes one subcommand (e.g. spawn:at) with a pipe value taken from
literal coordinates, named entities, or the result of an earlier step. When the
pipe value is a sequence and the subcommand only has a scalar implementation,
the implementation is applied to every element in order.

A step that cannot be resolved or bound is reported and the run continues.
Failed elements of a sequence are reported individually.`,
		Args: []ArgMeta{
			{Name: "scenario", Description: "Path to a scenario YAML file", Required: true, DynamicComp: "files"},
		},
		Flags: []FlagMeta{
			{Name: "lift-policy", Description: "Override the lift failure policy: continue or abort", Type: FlagTypeString},
			{Name: "catalog", Description: "Prototype catalog to use instead of the configured one", Type: FlagTypeString},
			{Name: "world", Short: "w", Description: "Print the final world state", Type: FlagTypeBool},
			{Name: "strict", Description: "Exit with an error if any step or element failed", Type: FlagTypeBool},
			{Name: "report", Description: "Also write the full JSON report to this file, or into this directory", Type: FlagTypeString},
		},
		Examples: []string{
			"shed run scenarios/warehouse.yaml",
			"shed run scenarios/warehouse.yaml --lift-policy abort --world",
			"shed run scenarios/warehouse.yaml --json",
			"shed run scenarios/warehouse.yaml --report out/warehouse.json",
		},
	},
	"commands": {
		Name:        "commands",
		Description: "List subcommand variants and the pipe types they accept",
		Args: []ArgMeta{
			{Name: "group", Description: "Only show this command group", DynamicComp: "groups"},
		},
		Examples: []string{
			"shed commands",
			"shed commands spawn --json",
		},
	},
	"prototypes": {
		Name:        "prototypes",
		Description: "List the prototypes in the catalog, or describe one",
		Args: []ArgMeta{
			{Name: "prototype", Description: "Prototype ID to describe", Required: false, DynamicComp: "prototypes"},
		},
		Flags: []FlagMeta{
			{Name: "catalog", Description: "Prototype catalog to use instead of the configured one", Type: FlagTypeString},
		},
		Examples: []string{
			"shed prototypes",
			"shed prototypes --catalog ./catalog.yaml --json",
			"shed prototypes Marker",
		},
	},
	"version": {
		Name:        "version",
		Description: "Show shed version and build information",
	},
}
