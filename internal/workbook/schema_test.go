package workbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultSchemaValid(t *testing.T) {
	if err := DefaultSchema.Validate(); err != nil {
		t.Fatalf("default schema invalid: %v", err)
	}
	for _, kind := range DatasetKinds {
		if _, ok := DefaultSchema.Sheet(kind); !ok {
			t.Fatalf("default schema missing %s", kind)
		}
	}
}

func TestLoadSchemaFileRoundTrip(t *testing.T) {
	data, err := json.Marshal(DefaultSchema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	path := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	got, err := LoadSchemaFile(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	if diff := cmp.Diff(DefaultSchema, got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no version":   `{"sheets":[]}`,
		"unknown":      `{"version":"x","sheets":[{"dataset":"otro","aliases":["a"]}]}`,
		"no aliases":   `{"version":"x","sheets":[{"dataset":"iniciativasSGR"}]}`,
		"duplicate":    `{"version":"x","sheets":[{"dataset":"iniciativasSGR","aliases":["a"]},{"dataset":"iniciativasSGR","aliases":["b"]}]}`,
		"field twice":  `{"version":"x","sheets":[{"dataset":"iniciativasSGR","aliases":["a"],"columns":[{"field":"sector","index":1,"coerce":"string"},{"field":"sector","index":2,"coerce":"string"}]}]}`,
		"bad coercion": `{"version":"x","sheets":[{"dataset":"iniciativasSGR","aliases":["a"],"columns":[{"field":"sector","index":1,"coerce":"date"}]}]}`,
		"negative":     `{"version":"x","sheets":[{"dataset":"iniciativasSGR","aliases":["a"],"columns":[{"field":"sector","index":-1,"coerce":"string"}]}]}`,
		"malformed":    `{"version":`,
	}
	for name, doc := range cases {
		if _, err := LoadSchema(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
