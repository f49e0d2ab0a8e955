// Package catalog holds the indicator definitions of a profile page and assembles them into a document.
//
// A catalog is YAML. Each section is a tree of nodes; a node is either a group of nodes or an indicator
// with a reverse-Polish formula. Every formula is compiled when the catalog is loaded, so a bad definition
// fails at startup rather than when a page is built.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/invertedv/profile"
)

var (
	//go:embed data/indicators.yaml
	indicatorsYAML []byte

	validate = validator.New()
)

// ErrInvalidCatalog is returned by Load for catalogs that fail validation or hold a bad formula.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is a compiled set of indicators.
type Catalog struct {
	Sections []*Section `yaml:"sections" validate:"required,min=1,unique=Name,dive"`

	logger *slog.Logger
}

// Section is one top-level section of the document.
type Section struct {
	Name  string  `yaml:"section" validate:"required,oneof=demographics economics families housing social"`
	Nodes []*Node `yaml:"nodes" validate:"unique=Key,dive"`
}

// Node is a group (Nodes set) or an indicator (Name and Formula set).
type Node struct {
	Key      string    `yaml:"key" validate:"required"`
	Name     string    `yaml:"name" validate:"required_with=Formula"`
	Formula  string    `yaml:"formula" validate:"required_without=Nodes,excluded_with=Nodes"`
	Metadata *Metadata `yaml:"metadata"`
	Nodes    []*Node   `yaml:"nodes" validate:"omitempty,unique=Key,dive"`

	formula *profile.Formula
}

// Metadata describes the source of a node. An empty Release is filled in with the release of the query.
type Metadata struct {
	TableID  string `yaml:"table_id" validate:"required"`
	Universe string `yaml:"universe" validate:"required"`
	Release  string `yaml:"release"`
}

// Load reads, validates and compiles a catalog. Unknown fields are errors.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	c := &Catalog{logger: slog.Default()}
	if e := dec.Decode(c); e != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, e)
	}

	if e := validate.Struct(c); e != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, e)
	}

	for _, s := range c.Sections {
		for _, n := range s.Nodes {
			if e := n.compile(s.Name); e != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, e)
			}
		}
	}

	return c, nil
}

// LoadFile loads the catalog in fileName.
func LoadFile(fileName string) (*Catalog, error) {
	f, e := os.Open(fileName)
	if e != nil {
		return nil, e
	}
	defer f.Close()

	return Load(f)
}

// Default loads the built-in catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(indicatorsYAML))
}

// ***************** Catalog - Methods *****************

// SetLogger replaces slog.Default as the logger of Assemble.
func (c *Catalog) SetLogger(l *slog.Logger) {
	c.logger = l
}

// Tables returns the sorted ids of all tables named in metadata. A comma-separated table id names several.
func (c *Catalog) Tables() []string {
	seen := make(map[string]bool)
	c.walk(func(_ []string, n *Node) {
		if n.Metadata == nil {
			return
		}

		for _, id := range strings.Split(n.Metadata.TableID, ",") {
			if id = strings.TrimSpace(id); id != "" {
				seen[id] = true
			}
		}
	})

	tables := make([]string, 0, len(seen))
	for id := range seen {
		tables = append(tables, id)
	}
	sort.Strings(tables)

	return tables
}

// Indicators returns the number of indicators in the catalog.
func (c *Catalog) Indicators() int {
	count := 0
	c.walk(func(_ []string, n *Node) {
		if n.formula != nil {
			count++
		}
	})

	return count
}

// Lookup returns the node at path, starting with the section name.
func (c *Catalog) Lookup(path ...string) *Node {
	var found *Node
	c.walk(func(p []string, n *Node) {
		if found == nil && strings.Join(p, "/") == strings.Join(path, "/") {
			found = n
		}
	})

	return found
}

// walk visits every node depth first, in order, with its path from the section name.
func (c *Catalog) walk(fn func(path []string, n *Node)) {
	var visit func(path []string, n *Node)
	visit = func(path []string, n *Node) {
		p := append(append([]string(nil), path...), n.Key)
		fn(p, n)

		for _, child := range n.Nodes {
			visit(p, child)
		}
	}

	for _, s := range c.Sections {
		for _, n := range s.Nodes {
			visit([]string{s.Name}, n)
		}
	}
}

// ***************** Node - Methods *****************

// IsIndicator is true for nodes with a formula.
func (n *Node) IsIndicator() bool {
	return n.Formula != ""
}

// Compiled is the formula of an indicator, nil for a group.
func (n *Node) Compiled() *profile.Formula {
	return n.formula
}

func (n *Node) compile(path string) error {
	path += "/" + n.Key
	if n.IsIndicator() {
		var e error
		if n.formula, e = profile.ParseFormula(n.Formula); e != nil {
			return fmt.Errorf("%s: %w", path, e)
		}

		return nil
	}

	for _, child := range n.Nodes {
		if e := child.compile(path); e != nil {
			return e
		}
	}

	return nil
}
