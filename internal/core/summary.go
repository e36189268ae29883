package core

import (
	"github.com/shopspring/decimal"

	"budgetcore/pkg/domain"
)

// CategoryTotal aggregates the projects filed under one category.
// Uncategorized marks the bucket of projects whose category is blank or was
// deleted; it is labelled domain.OtherCategory.
type CategoryTotal struct {
	Category      string
	Uncategorized bool
	Projects      int
	Budget        decimal.Decimal
}

// ProgressCount is the number of projects at one progress level.
type ProgressCount struct {
	Level    domain.ProgressLevel
	Projects int
}

// BudgetSummary is the dashboard view of the current agency.
type BudgetSummary struct {
	AgencyID   string
	AgencyName string
	Allocated  decimal.Decimal
	Committed  decimal.Decimal
	Remaining  decimal.Decimal
	WBSTotal   decimal.Decimal
	Projects   int
	ByCategory []CategoryTotal
	ByProgress []ProgressCount
}

// Summary computes allocation, committed budget (sum of project budgets),
// remaining allocation and WBS totals for the current agency. Categories are
// listed in agency order followed by the uncategorized bucket when any
// project carries a blank or unknown category.
func (r *Repository) Summary() BudgetSummary {
	a := r.CurrentAgency()
	s := BudgetSummary{
		AgencyID:   a.ID,
		AgencyName: a.Name,
		Allocated:  decimal.NewFromFloat(a.TotalAllocatedBudget),
		Committed:  decimal.Zero,
		WBSTotal:   decimal.Zero,
		Projects:   len(a.Projects),
	}
	byCategory := make(map[string]*CategoryTotal, len(a.Categories)+1)
	order := make([]string, 0, len(a.Categories)+1)
	for _, c := range a.Categories {
		if _, dup := byCategory[c]; dup {
			continue
		}
		byCategory[c] = &CategoryTotal{Category: c, Budget: decimal.Zero}
		order = append(order, c)
	}
	var orphans *CategoryTotal
	levels := make(map[domain.ProgressLevel]int)
	for _, p := range a.Projects {
		budget := decimal.NewFromFloat(p.Budget)
		s.Committed = s.Committed.Add(budget)
		s.WBSTotal = s.WBSTotal.Add(p.WBSTotal())

		ct := byCategory[p.Category]
		if a.Uncategorized(p) {
			if orphans == nil {
				orphans = &CategoryTotal{Category: domain.OtherCategory, Uncategorized: true, Budget: decimal.Zero}
			}
			ct = orphans
		}
		ct.Projects++
		ct.Budget = ct.Budget.Add(budget)

		level := p.ProgressLevel
		if !level.Valid() {
			level = domain.ProgressNotStart
		}
		levels[level]++
	}
	s.Remaining = s.Allocated.Sub(s.Committed)
	for _, c := range order {
		s.ByCategory = append(s.ByCategory, *byCategory[c])
	}
	if orphans != nil {
		s.ByCategory = append(s.ByCategory, *orphans)
	}
	for _, level := range domain.ProgressLevels() {
		s.ByProgress = append(s.ByProgress, ProgressCount{Level: level, Projects: levels[level]})
	}
	return s
}
