package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pdmtracker/pkg/domain"
)

// fundingTopSectors caps the per-sector funding series.
const fundingTopSectors = 8

var two = decimal.NewFromInt(2)

// sgrYearShare returns the royalty resources attributed to a fiscal year: half
// of the biennium that covers it.
func sgrYearShare(p *domain.SGRInvestmentProduct, year int) decimal.Decimal {
	var biennium float64
	switch year {
	case 2024:
		biennium = p.Resources2324
	case 2025, 2026:
		biennium = p.Resources2526
	case 2027:
		biennium = p.Resources2728
	}
	return decimal.NewFromFloat(biennium).Div(two)
}

type fundingAccumulator struct {
	sector   string
	ordinary decimal.Decimal
	sgr      decimal.Decimal
}

// analyzeFunding compares ordinary budget with royalty resources over every
// product, budgeted or not.
func analyzeFunding(products []domain.InvestmentProduct, sgrProducts []domain.SGRInvestmentProduct) domain.FundingAnalysis {
	ordinary := decimal.Zero
	sgr := decimal.Zero
	sectors := make(map[string]*fundingAccumulator)
	var order []*fundingAccumulator
	sectorFor := func(name string) *fundingAccumulator {
		name = strings.TrimSpace(name)
		if name == "" {
			name = NoSectorLabel
		}
		acc, ok := sectors[name]
		if !ok {
			acc = &fundingAccumulator{sector: name, ordinary: decimal.Zero, sgr: decimal.Zero}
			sectors[name] = acc
			order = append(order, acc)
		}
		return acc
	}

	for i := range products {
		p := &products[i]
		total := sumOf(p.Budget2024, p.Budget2025, p.Budget2026, p.Budget2027)
		ordinary = ordinary.Add(total)
		acc := sectorFor(p.Sector)
		acc.ordinary = acc.ordinary.Add(total)
	}
	for i := range sgrProducts {
		p := &sgrProducts[i]
		total := sumOf(p.Resources2324, p.Resources2526, p.Resources2728)
		sgr = sgr.Add(total)
		acc := sectorFor(p.Sector)
		acc.sgr = acc.sgr.Add(total)
	}

	combined := ordinary.Add(sgr)
	out := domain.FundingAnalysis{
		OrdinaryTotal: ordinary.InexactFloat64(),
		SGRTotal:      sgr.InexactFloat64(),
		ByYear:        make([]domain.FundingYear, 0, len(domain.FiscalYears)),
		BySector:      []domain.FundingSector{},
	}
	if combined.IsPositive() {
		hundred := decimal.NewFromInt(100)
		out.OrdinaryPercentage = ordinary.Div(combined).Mul(hundred).InexactFloat64()
		out.SGRPercentage = sgr.Div(combined).Mul(hundred).InexactFloat64()
	}

	for _, year := range domain.FiscalYears {
		yo := decimal.Zero
		for i := range products {
			yo = yo.Add(decimal.NewFromFloat(products[i].Budget(year)))
		}
		ys := decimal.Zero
		for i := range sgrProducts {
			ys = ys.Add(sgrYearShare(&sgrProducts[i], year))
		}
		out.ByYear = append(out.ByYear, domain.FundingYear{
			Year:     year,
			Ordinary: yo.InexactFloat64(),
			SGR:      ys.InexactFloat64(),
			Total:    yo.Add(ys).InexactFloat64(),
		})
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].ordinary.Add(order[i].sgr).GreaterThan(order[j].ordinary.Add(order[j].sgr))
	})
	if len(order) > fundingTopSectors {
		order = order[:fundingTopSectors]
	}
	for _, acc := range order {
		out.BySector = append(out.BySector, domain.FundingSector{
			Sector:   acc.sector,
			Ordinary: acc.ordinary.InexactFloat64(),
			SGR:      acc.sgr.InexactFloat64(),
			Total:    acc.ordinary.Add(acc.sgr).InexactFloat64(),
		})
	}
	return out
}
