package domain

import "strings"

// ProductFilter selects investment products. Zero-valued fields do not filter;
// set fields combine with AND.
type ProductFilter struct {
	// Year keeps products with a positive budget in that fiscal year.
	Year               int    `json:"anio,omitempty" query:"year"`
	Sector             string `json:"sector,omitempty" query:"sector"`
	StrategicLine      string `json:"lineaEstrategica,omitempty" query:"line"`
	Status             Status `json:"estado,omitempty" query:"status"`
	AssignedDepartment string `json:"secretaria,omitempty" query:"department"`
	GoalCode           string `json:"ods,omitempty" query:"ods"`
	HasBPIN            bool   `json:"bpin,omitempty" query:"bpin"`
}

// Match reports whether the product passes every set criterion.
func (f ProductFilter) Match(p *InvestmentProduct) bool {
	if f.Year != 0 && IsFiscalYear(f.Year) && p.Budget(f.Year) <= 0 {
		return false
	}
	if f.Sector != "" && p.Sector != f.Sector {
		return false
	}
	if f.StrategicLine != "" && p.StrategicLine != f.StrategicLine {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.AssignedDepartment != "" && p.AssignedDepartment != f.AssignedDepartment {
		return false
	}
	if f.GoalCode != "" && p.GoalCode != f.GoalCode {
		return false
	}
	if f.HasBPIN && !p.HasBPIN() {
		return false
	}
	return true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
