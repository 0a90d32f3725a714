package domain

import (
	"encoding/json"
	"sort"
	"testing"
	"time"
)

func keysOf(t *testing.T, v any) []string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	keys := make([]string, 0, len(decoded))
	for k := range decoded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestDatasetWireNames(t *testing.T) {
	got := keysOf(t, Dataset{})
	want := []string{"indicadoresResultado", "iniciativasSGR", "lineasEstrategicas", "metadata", "planIndicativoProductos", "planIndicativoSGR"}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected keys %v", got)
		}
	}
}

func TestInvestmentProductOmitsUnsetTracking(t *testing.T) {
	keys := keysOf(t, InvestmentProduct{ProductIndicatorCode: "P1"})
	for _, k := range keys {
		switch k {
		case "estado", "secretariaAsignada", "avances", "bpin":
			t.Fatalf("unset field %q must be omitted", k)
		}
	}

	p := InvestmentProduct{
		ProductIndicatorCode: "P1",
		Status:               StatusEnProgreso,
		AssignedDepartment:   "Planeación",
		YearlyProgress:       map[int]YearProgress{2025: {ExecutedValue: 3, RecordedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back InvestmentProduct
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Status != StatusEnProgreso || back.AssignedDepartment != "Planeación" || back.YearlyProgress[2025].ExecutedValue != 3 {
		t.Fatalf("tracking fields lost: %+v", back)
	}
}

func TestMetadataWireNames(t *testing.T) {
	got := keysOf(t, Metadata{})
	want := map[string]bool{"idCarga": true, "nombreArchivo": true, "fechaCarga": true, "totalRegistros": true, "versionEsquema": true}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys %v", got)
	}
	for _, k := range got {
		if !want[k] {
			t.Fatalf("unexpected key %q", k)
		}
	}
}
