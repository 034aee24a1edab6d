// Package prototype loads the catalog of entity prototypes that spawn commands create.
package prototype

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/shed/internal/docschema"
	"github.com/aidanlsb/shed/internal/suggest"
)

// ID identifies a prototype in the catalog, e.g. "Crate".
type ID string

// Capability is a named facet an entity may carry.
type Capability string

// Capabilities required for an entity to live inside a container.
const (
	Transform Capability = "transform"
	Metadata  Capability = "metadata"
	Physics   Capability = "physics"
)

// Containable lists the capabilities an entity needs before it can be inserted.
var Containable = []Capability{Transform, Metadata, Physics}

// SupportedMajor is the catalog format major version this build reads.
const SupportedMajor = "v1"

// ErrUnknownPrototype is returned by Lookup for IDs not in the catalog.
var ErrUnknownPrototype = errors.New("unknown prototype")

//go:embed default_catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

var schema = docschema.New("prototype catalog", catalogSchema)

// Prototype describes what a freshly spawned entity looks like.
type Prototype struct {
	ID           ID                       `yaml:"-"`
	Name         string                   `yaml:"name"`
	Description  string                   `yaml:"description,omitempty"`
	Capabilities []Capability             `yaml:"capabilities"`
	Containers   map[string]ContainerSpec `yaml:"containers,omitempty"`
}

// ContainerSpec declares a named container slot on a prototype.
type ContainerSpec struct {
	// Capacity is the maximum number of entities held; 0 means unlimited.
	Capacity int `yaml:"capacity"`
}

// Has reports whether the prototype declares capability c.
func (p *Prototype) Has(c Capability) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// ContainerNames returns the prototype's container names, sorted.
func (p *Prototype) ContainerNames() []string {
	names := make([]string, 0, len(p.Containers))
	for name := range p.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog is an immutable set of prototypes.
type Catalog struct {
	Version    string
	Source     string
	prototypes map[ID]*Prototype
}

type catalogFile struct {
	Version    string                `yaml:"version"`
	Prototypes map[string]*Prototype `yaml:"prototypes"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog, "built-in")
	if err != nil {
		panic(fmt.Sprintf("built-in prototype catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prototype catalog %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse validates and decodes a catalog document. source names it in errors.
func Parse(data []byte, source string) (*Catalog, error) {
	if err := schema.ValidateYAML(data); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prototype catalog %s: %w", source, err)
	}

	version, err := docschema.CheckVersion(file.Version, SupportedMajor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	c := &Catalog{Version: version, Source: source, prototypes: make(map[ID]*Prototype, len(file.Prototypes))}
	for name, p := range file.Prototypes {
		if p == nil {
			p = &Prototype{}
		}
		p.ID = ID(name)
		if p.Name == "" {
			p.Name = name
		}
		c.prototypes[p.ID] = p
	}
	return c, nil
}

// Lookup returns the prototype with the given ID.
func (c *Catalog) Lookup(id ID) (*Prototype, error) {
	if p, ok := c.prototypes[id]; ok {
		return p, nil
	}
	if s := c.Suggest(id); s != "" {
		return nil, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownPrototype, id, s)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownPrototype, id)
}

// IDs returns every prototype ID, sorted.
func (c *Catalog) IDs() []ID {
	ids := make([]ID, 0, len(c.prototypes))
	for id := range c.prototypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Suggest returns the known ID closest to id, or "".
func (c *Catalog) Suggest(id ID) ID {
	names := make([]string, 0, len(c.prototypes))
	for _, known := range c.IDs() {
		names = append(names, string(known))
	}
	return ID(suggest.Closest(string(id), names))
}
