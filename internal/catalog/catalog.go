package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// UnknownSOPTitle is shown for SOP ids missing from the catalogue.
const UnknownSOPTitle = "SOP Desconocido"

// SLAType describes one SLA category: its budget and counting policy.
type SLAType struct {
	ID             string
	Name           string
	Duration       time.Duration
	BusinessWindow bool
}

// SOP groups the SLA types of one standard operating procedure.
type SOP struct {
	ID    string
	Title string
	Types []SLAType
}

// Catalog is the static policy lookup keyed by (SOP, type).
type Catalog struct {
	sops  []SOP
	index map[string]int
}

type rawCatalog struct {
	SOPs []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
		Types []struct {
			ID             string `yaml:"id"`
			Name           string `yaml:"name"`
			Duration       string `yaml:"duration"`
			BusinessWindow bool   `yaml:"business_window"`
		} `yaml:"types"`
	} `yaml:"sops"`
}

// Default returns the built-in catalogue.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Errorf("embedded catalogue: %w", err))
	}
	return c
}

// Load reads a catalogue file. An empty path yields the built-in catalogue.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal catalogue: %w", err)
	}
	if len(raw.SOPs) == 0 {
		return nil, errors.New("catalogue has no sops")
	}

	c := &Catalog{index: make(map[string]int, len(raw.SOPs))}
	for _, rs := range raw.SOPs {
		id := strings.TrimSpace(rs.ID)
		if id == "" {
			return nil, errors.New("sop id is required")
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("duplicate sop %q", id)
		}
		sop := SOP{ID: id, Title: strings.TrimSpace(rs.Title)}
		seen := make(map[string]struct{}, len(rs.Types))
		for _, rt := range rs.Types {
			typeID := strings.TrimSpace(rt.ID)
			if typeID == "" {
				return nil, fmt.Errorf("sop %s: type id is required", id)
			}
			if _, dup := seen[typeID]; dup {
				return nil, fmt.Errorf("sop %s: duplicate type %q", id, typeID)
			}
			seen[typeID] = struct{}{}
			d, err := time.ParseDuration(strings.TrimSpace(rt.Duration))
			if err != nil {
				return nil, fmt.Errorf("sop %s type %s: %w", id, typeID, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("sop %s type %s: duration must be positive", id, typeID)
			}
			sop.Types = append(sop.Types, SLAType{
				ID:             typeID,
				Name:           strings.TrimSpace(rt.Name),
				Duration:       d,
				BusinessWindow: rt.BusinessWindow,
			})
		}
		c.index[id] = len(c.sops)
		c.sops = append(c.sops, sop)
	}
	return c, nil
}

// SOPs lists every SOP in catalogue order.
func (c *Catalog) SOPs() []SOP {
	out := make([]SOP, len(c.sops))
	copy(out, c.sops)
	return out
}

// SOP returns the SOP with the given id.
func (c *Catalog) SOP(id string) (SOP, bool) {
	idx, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return SOP{}, false
	}
	return c.sops[idx], true
}

// SOPTitle returns the SOP's display title.
func (c *Catalog) SOPTitle(id string) string {
	if sop, ok := c.SOP(id); ok {
		return sop.Title
	}
	return UnknownSOPTitle
}

// Types returns the SLA types available for a SOP.
func (c *Catalog) Types(sopID string) []SLAType {
	sop, ok := c.SOP(sopID)
	if !ok {
		return nil
	}
	out := make([]SLAType, len(sop.Types))
	copy(out, sop.Types)
	return out
}

// Lookup resolves a (SOP, type) pair.
func (c *Catalog) Lookup(sopID, typeID string) (SLAType, bool) {
	sop, ok := c.SOP(sopID)
	if !ok {
		return SLAType{}, false
	}
	for _, t := range sop.Types {
		if t.ID == typeID {
			return t, true
		}
	}
	return SLAType{}, false
}

// Duration returns the type's budget, or zero when the pair is unknown.
func (c *Catalog) Duration(sopID, typeID string) time.Duration {
	t, _ := c.Lookup(sopID, typeID)
	return t.Duration
}

// TypeName returns the type's display name, falling back to its id.
func (c *Catalog) TypeName(sopID, typeID string) string {
	if t, ok := c.Lookup(sopID, typeID); ok && t.Name != "" {
		return t.Name
	}
	return typeID
}

// UsesBusinessWindow reports whether the pair counts business-window time only.
func (c *Catalog) UsesBusinessWindow(sopID, typeID string) bool {
	t, _ := c.Lookup(sopID, typeID)
	return t.BusinessWindow
}
