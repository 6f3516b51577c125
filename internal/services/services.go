// Package services canonicalizes account-enumeration labels (for example
// "www.twitter.com/" or "x.com") into stable service identifiers.
package services

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliases []byte

// Entry is one service with the labels that refer to it.
type Entry struct {
	Service    string   `yaml:"service" json:"service"`
	Aliases    []string `yaml:"aliases" json:"aliases"`
	ModulePath string   `yaml:"module_path,omitempty" json:"module_path,omitempty"`
}

// Table is an immutable alias lookup. Build it once at startup and share
// it by reference.
type Table struct {
	alias   map[string]string
	entries map[string]Entry
}

// New builds a Table from entries. Entries without a service name are
// skipped; later aliases overwrite earlier ones.
func New(entries []Entry) *Table {
	t := &Table{
		alias:   make(map[string]string),
		entries: make(map[string]Entry),
	}
	for _, e := range entries {
		svc := strings.ToLower(strings.TrimSpace(e.Service))
		if svc == "" {
			continue
		}
		e.Service = svc
		t.entries[svc] = e
		t.alias[svc] = svc
		for _, a := range e.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				t.alias[a] = svc
			}
		}
	}
	return t
}

// Parse decodes a YAML (or JSON) list of entries.
func Parse(data []byte) (*Table, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "services: parse alias table")
	}
	return New(entries), nil
}

// Load reads the alias table at path. An empty path loads the built-in
// table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "services: read alias table %s", path)
	}
	return Parse(data)
}

// Default returns the built-in alias table.
func Default() *Table {
	t, err := Parse(defaultAliases)
	if err != nil {
		// The embedded file is part of the build.
		panic(err)
	}
	return t
}

// Canonicalize maps a raw label to its service id and host label. Unknown
// hosts map to themselves. ok is false only for labels that reduce to
// nothing.
func (t *Table) Canonicalize(label string) (serviceID, host string, ok bool) {
	raw := strings.ToLower(strings.TrimSpace(label))
	raw = strings.TrimRight(raw, "/")
	raw, _, _ = strings.Cut(raw, "?")
	raw, _, _ = strings.Cut(raw, "#")
	raw = strings.TrimPrefix(raw, "www.")
	host, _, _ = strings.Cut(raw, "/")
	if host == "" {
		return "", "", false
	}
	if svc, found := t.alias[host]; found {
		return svc, host, true
	}
	return host, host, true
}

// Lookup returns the entry registered for a service id.
func (t *Table) Lookup(serviceID string) (Entry, bool) {
	e, ok := t.entries[serviceID]
	return e, ok
}

// Len reports the number of services in the table.
func (t *Table) Len() int { return len(t.entries) }
