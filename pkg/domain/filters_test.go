package domain

import "testing"

func TestProductFilterMatch(t *testing.T) {
	p := &InvestmentProduct{
		Sector:             "Educación",
		StrategicLine:      "Bienestar",
		Status:             StatusEnProgreso,
		AssignedDepartment: "Secretaría de Educación",
		GoalCode:           "4",
		BPIN:               "2024-1",
		Budget2025:         100,
	}
	cases := []struct {
		name   string
		filter ProductFilter
		want   bool
	}{
		{"empty", ProductFilter{}, true},
		{"year with budget", ProductFilter{Year: 2025}, true},
		{"year without budget", ProductFilter{Year: 2024}, false},
		{"year outside period ignored", ProductFilter{Year: 2030}, true},
		{"sector", ProductFilter{Sector: "Educación"}, true},
		{"other sector", ProductFilter{Sector: "Salud"}, false},
		{"line", ProductFilter{StrategicLine: "Bienestar"}, true},
		{"status", ProductFilter{Status: StatusCumplida}, false},
		{"department", ProductFilter{AssignedDepartment: "Secretaría de Educación"}, true},
		{"goal", ProductFilter{GoalCode: "5"}, false},
		{"bpin", ProductFilter{HasBPIN: true}, true},
		{"combined", ProductFilter{Year: 2025, Sector: "Educación", Status: StatusEnProgreso, HasBPIN: true}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(p); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
	if (ProductFilter{HasBPIN: true}).Match(&InvestmentProduct{}) {
		t.Fatalf("product without bpin matched")
	}
}
