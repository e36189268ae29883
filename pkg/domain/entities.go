// Package domain defines the agency, project and WBS records tracked by
// budgetcore together with the persistence and authentication contracts the
// core depends on.
package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ProgressLevel is the coarse progress bucket displayed for a project.
type ProgressLevel string

// Canonical progress levels.
const (
	ProgressNotStart   ProgressLevel = "NotStart"
	ProgressPlanning   ProgressLevel = "Planning"
	ProgressInProgress ProgressLevel = "InProgress"
	ProgressDone       ProgressLevel = "Done"
)

// ProgressLevels lists the progress levels in workflow order.
func ProgressLevels() []ProgressLevel {
	return []ProgressLevel{ProgressNotStart, ProgressPlanning, ProgressInProgress, ProgressDone}
}

// Valid reports whether the level is one of the canonical values.
func (p ProgressLevel) Valid() bool {
	return slices.Contains(ProgressLevels(), p)
}

// ProjectStatus is the legacy status field kept for stored documents that
// predate ProgressLevel.
type ProjectStatus string

// Legacy project statuses.
const (
	StatusPlanning   ProjectStatus = "Planning"
	StatusInProgress ProjectStatus = "InProgress"
	StatusCompleted  ProjectStatus = "Completed"
	StatusOnHold     ProjectStatus = "OnHold"
)

// WBSItem is a single line of a project's work breakdown structure (BOQ).
type WBSItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
}

// LineTotal returns quantity × unit price. The total is never stored.
func (w WBSItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(w.Quantity).Mul(decimal.NewFromFloat(w.UnitPrice))
}

// Project is a budgeted piece of work owned by exactly one agency.
type Project struct {
	ID            int64         `json:"id"`
	ProjectCode   string        `json:"projectCode"`
	Name          string        `json:"name"`
	Budget        float64       `json:"budget"`
	Status        ProjectStatus `json:"status"`
	Progress      int           `json:"progress"`
	ProgressLevel ProgressLevel `json:"progressLevel"`
	ActivityDate  string        `json:"activityDate,omitempty"`
	Owner         string        `json:"owner,omitempty"`
	Location      string        `json:"location,omitempty"`
	StartDate     string        `json:"startDate,omitempty"`
	Category      string        `json:"category"`
	WBS           []WBSItem     `json:"wbs"`
}

// WBSTotal sums the line totals of the project's WBS items.
func (p Project) WBSTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.WBS {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	cp := p
	cp.WBS = make([]WBSItem, len(p.WBS))
	copy(cp.WBS, p.WBS)
	return cp
}

// Agency is an isolated tenant holding its own projects, categories and budget.
type Agency struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Projects             []Project `json:"projects"`
	Categories           []string  `json:"categories"`
	TotalAllocatedBudget float64   `json:"totalAllocatedBudget"`
	Passcode             string    `json:"passcode,omitempty"`
}

// Clone returns a deep copy of the agency.
func (a Agency) Clone() Agency {
	cp := a
	cp.Projects = make([]Project, len(a.Projects))
	for i, p := range a.Projects {
		cp.Projects[i] = p.Clone()
	}
	cp.Categories = slices.Clone(a.Categories)
	if cp.Categories == nil {
		cp.Categories = []string{}
	}
	return cp
}

// HasCategory reports whether name is one of the agency's categories.
func (a Agency) HasCategory(name string) bool {
	return slices.Contains(a.Categories, name)
}

// OtherCategory is the label shown for projects whose category was deleted.
const OtherCategory = "other"

// Uncategorized reports whether p's category is blank or no longer defined
// by the agency.
func (a Agency) Uncategorized(p Project) bool {
	return p.Category == "" || !a.HasCategory(p.Category)
}

// CategoryLabel returns the project's category, or OtherCategory when the
// agency no longer defines it. An agency may also define a real category
// named OtherCategory; use Uncategorized to tell them apart.
func (a Agency) CategoryLabel(p Project) string {
	if a.Uncategorized(p) {
		return OtherCategory
	}
	return p.Category
}

// Snapshot is the whole-document unit persisted locally and remotely.
type Snapshot struct {
	Agencies        []Agency `json:"agencies"`
	CurrentAgencyID string   `json:"currentAgencyId"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{CurrentAgencyID: s.CurrentAgencyID, Agencies: make([]Agency, len(s.Agencies))}
	for i, a := range s.Agencies {
		out.Agencies[i] = a.Clone()
	}
	return out
}

// Normalize replaces nil slices with empty ones so encoded snapshots never
// carry null arrays, and points CurrentAgencyID at an existing agency.
func (s *Snapshot) Normalize() {
	if s.Agencies == nil {
		s.Agencies = []Agency{}
	}
	found := false
	for i := range s.Agencies {
		a := &s.Agencies[i]
		if a.Projects == nil {
			a.Projects = []Project{}
		}
		if a.Categories == nil {
			a.Categories = []string{}
		}
		for j := range a.Projects {
			if a.Projects[j].WBS == nil {
				a.Projects[j].WBS = []WBSItem{}
			}
		}
		if a.ID == s.CurrentAgencyID {
			found = true
		}
	}
	if !found && len(s.Agencies) > 0 {
		s.CurrentAgencyID = s.Agencies[0].ID
	}
}
