package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if got := len(c.SOPs()); got != 12 {
		t.Fatalf("expected 12 sops got %d", got)
	}

	tests := []struct {
		name     string
		sop      string
		typeID   string
		duration time.Duration
		business bool
	}{
		{"business quote", "1", "cotizacion-estandar", 72 * time.Hour, true},
		{"continuous urgent", "2", "urgencias", 24 * time.Hour, false},
		{"monthly reconciliation", "3", "conciliacion-mensual", 120 * time.Hour, true},
		{"kickoff", "6", "kickoff", 120 * time.Hour, true},
		{"design intake", "10", "convocatoria-revision", 24 * time.Hour, true},
		{"customs", "12", "embarque-aduana", 72 * time.Hour, true},
		{"inc shipping", "12", "embarque-inc", 24 * time.Hour, false},
		{"unknown type", "2", "missing", 0, false},
		{"unknown sop", "99", "urgencias", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Duration(tc.sop, tc.typeID); got != tc.duration {
				t.Fatalf("expected duration %s got %s", tc.duration, got)
			}
			if got := c.UsesBusinessWindow(tc.sop, tc.typeID); got != tc.business {
				t.Fatalf("expected business window %v got %v", tc.business, got)
			}
		})
	}
}

func TestCatalogNames(t *testing.T) {
	c := Default()
	if got := c.SOPTitle("11"); got != "SOP 11-Ventas" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := c.SOPTitle("42"); got != UnknownSOPTitle {
		t.Fatalf("expected fallback title got %q", got)
	}
	if got := c.TypeName("5", "s1-respuesta"); got != "S1: Respuesta" {
		t.Fatalf("unexpected type name %q", got)
	}
	if got := c.TypeName("5", "legacy"); got != "legacy" {
		t.Fatalf("expected id fallback got %q", got)
	}
	if got := len(c.Types("5")); got != 5 {
		t.Fatalf("expected 5 types got %d", got)
	}
	if c.Types("42") != nil {
		t.Fatalf("expected nil types for unknown sop")
	}
}

func TestParseRejectsInvalidCatalogues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "sops: []", "no sops"},
		{"missing sop id", "sops:\n  - title: x\n", "sop id is required"},
		{"duplicate type", "sops:\n  - id: a\n    types:\n      - {id: t, duration: 1h}\n      - {id: t, duration: 2h}\n", "duplicate type"},
		{"bad duration", "sops:\n  - id: a\n    types:\n      - {id: t, duration: soon}\n", "sop a type t"},
		{"zero duration", "sops:\n  - id: a\n    types:\n      - {id: t, duration: 0s}\n", "must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := "sops:\n  - id: ops\n    title: Operations\n    types:\n      - {id: triage, name: Triage, duration: 90m, business_window: true}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	typ, ok := c.Lookup("ops", "triage")
	if !ok {
		t.Fatalf("expected triage type")
	}
	if typ.Duration != 90*time.Minute || !typ.BusinessWindow {
		t.Fatalf("unexpected type %+v", typ)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
