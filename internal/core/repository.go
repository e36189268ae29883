package core

import (
	"errors"
	"slices"
	"strings"

	"budgetcore/pkg/domain"
)

// ErrLastAgency is returned when deleting the only remaining agency.
var ErrLastAgency = errors.New("cannot delete the last agency")

// ProjectPatch carries the fields UpdateProject merges into a project. Nil
// fields are left untouched.
type ProjectPatch struct {
	ProjectCode   *string
	Name          *string
	Budget        *float64
	Status        *domain.ProjectStatus
	Progress      *int
	ProgressLevel *domain.ProgressLevel
	ActivityDate  *string
	Owner         *string
	Location      *string
	StartDate     *string
	Category      *string
	WBS           *[]domain.WBSItem
}

// Repository holds the agency list and the current-agency pointer. Project
// operations are scoped to the current agency. Mutators report whether state
// changed; unknown ids are silent no-ops. Repository is not safe for
// concurrent use; Service serialises access.
type Repository struct {
	agencies []domain.Agency
	current  string
	ids      *projectIDs
}

// NewRepository builds a repository over a copy of snap.
func NewRepository(snap domain.Snapshot, clock Clock) *Repository {
	if clock == nil {
		clock = ClockFunc(nil)
	}
	r := &Repository{ids: newProjectIDs(clock)}
	r.Replace(snap)
	return r
}

// Replace swaps in a copy of snap, seeding defaults when it holds no agency.
func (r *Repository) Replace(snap domain.Snapshot) {
	snap = snap.Clone()
	if len(snap.Agencies) == 0 {
		snap = domain.DefaultSnapshot()
	}
	snap.Normalize()
	r.agencies = snap.Agencies
	r.current = snap.CurrentAgencyID
	for _, a := range r.agencies {
		for _, p := range a.Projects {
			r.ids.seed(p.ID)
		}
	}
}

// Snapshot returns a deep copy of the repository state.
func (r *Repository) Snapshot() domain.Snapshot {
	return domain.Snapshot{Agencies: r.agencies, CurrentAgencyID: r.current}.Clone()
}

// Agencies returns copies of all agencies in storage order.
func (r *Repository) Agencies() []domain.Agency {
	return r.Snapshot().Agencies
}

// CurrentAgencyID returns the id of the current agency.
func (r *Repository) CurrentAgencyID() string { return r.current }

// CurrentAgency returns a copy of the current agency.
func (r *Repository) CurrentAgency() domain.Agency {
	if a := r.currentAgency(); a != nil {
		return a.Clone()
	}
	return domain.Agency{}
}

// Projects returns copies of the current agency's projects, newest first.
func (r *Repository) Projects() []domain.Project {
	return r.CurrentAgency().Projects
}

// Project looks up a project of the current agency.
func (r *Repository) Project(id int64) (domain.Project, bool) {
	a := r.currentAgency()
	if a == nil {
		return domain.Project{}, false
	}
	if i := projectIndex(a, id); i >= 0 {
		return a.Projects[i].Clone(), true
	}
	return domain.Project{}, false
}

func (r *Repository) currentAgency() *domain.Agency {
	return r.agency(r.current)
}

func (r *Repository) agency(id string) *domain.Agency {
	for i := range r.agencies {
		if r.agencies[i].ID == id {
			return &r.agencies[i]
		}
	}
	return nil
}

func projectIndex(a *domain.Agency, id int64) int {
	return slices.IndexFunc(a.Projects, func(p domain.Project) bool { return p.ID == id })
}

// AddAgency appends an empty agency with the default categories, budget and
// reader passcode, and makes it current.
func (r *Repository) AddAgency(name string) domain.Agency {
	a := domain.Agency{
		ID:                   newAgencyID(),
		Name:                 strings.TrimSpace(name),
		Projects:             []domain.Project{},
		Categories:           domain.DefaultCategories(),
		TotalAllocatedBudget: domain.DefaultBudget,
		Passcode:             domain.DefaultAgencyPasscode,
	}
	r.agencies = append(r.agencies, a)
	r.current = a.ID
	return a.Clone()
}

// SwitchAgency moves the current pointer to id when it exists.
func (r *Repository) SwitchAgency(id string) bool {
	if r.agency(id) == nil || r.current == id {
		return false
	}
	r.current = id
	return true
}

// UpdateAgencyName renames agency id.
func (r *Repository) UpdateAgencyName(id, name string) bool {
	a := r.agency(id)
	if a == nil {
		return false
	}
	a.Name = name
	return true
}

// UpdateAgencyPasscode sets the reader passcode of agency id.
func (r *Repository) UpdateAgencyPasscode(id, passcode string) bool {
	a := r.agency(id)
	if a == nil {
		return false
	}
	a.Passcode = passcode
	return true
}

// DeleteAgency removes agency id. The last agency is never removed. When the
// current agency is deleted the first remaining one becomes current.
func (r *Repository) DeleteAgency(id string) (bool, error) {
	if len(r.agencies) <= 1 {
		return false, ErrLastAgency
	}
	i := slices.IndexFunc(r.agencies, func(a domain.Agency) bool { return a.ID == id })
	if i < 0 {
		return false, nil
	}
	r.agencies = slices.Delete(r.agencies, i, i+1)
	if r.current == id {
		r.current = r.agencies[0].ID
	}
	return true, nil
}

// ClearAllData resets the repository to the single seeded default agency.
func (r *Repository) ClearAllData() {
	r.Replace(domain.DefaultSnapshot())
}

// FindAgencyByPasscode returns the first agency whose reader passcode equals
// passcode. Empty passcodes never match.
func (r *Repository) FindAgencyByPasscode(passcode string) (domain.Agency, bool) {
	if passcode == "" {
		return domain.Agency{}, false
	}
	for _, a := range r.agencies {
		if a.Passcode == passcode {
			return a.Clone(), true
		}
	}
	return domain.Agency{}, false
}

// AddProject stores p in the current agency under a fresh id with progress
// reset to 0. Blank WBS item ids are filled in. The project is prepended.
func (r *Repository) AddProject(p domain.Project) domain.Project {
	a := r.currentAgency()
	if a == nil {
		return domain.Project{}
	}
	p = p.Clone()
	p.ID = r.ids.next()
	p.Progress = 0
	if p.ProgressLevel == "" {
		p.ProgressLevel = domain.ProgressNotStart
	}
	for i := range p.WBS {
		if p.WBS[i].ID == "" {
			p.WBS[i].ID = newWBSItemID()
		}
	}
	a.Projects = slices.Insert(a.Projects, 0, p)
	return p.Clone()
}

// UpdateProject merges patch into project id of the current agency.
func (r *Repository) UpdateProject(id int64, patch ProjectPatch) bool {
	a := r.currentAgency()
	if a == nil {
		return false
	}
	i := projectIndex(a, id)
	if i < 0 {
		return false
	}
	p := &a.Projects[i]
	setIf(&p.ProjectCode, patch.ProjectCode)
	setIf(&p.Name, patch.Name)
	setIf(&p.Budget, patch.Budget)
	setIf(&p.Status, patch.Status)
	setIf(&p.Progress, patch.Progress)
	setIf(&p.ProgressLevel, patch.ProgressLevel)
	setIf(&p.ActivityDate, patch.ActivityDate)
	setIf(&p.Owner, patch.Owner)
	setIf(&p.Location, patch.Location)
	setIf(&p.StartDate, patch.StartDate)
	setIf(&p.Category, patch.Category)
	if patch.WBS != nil {
		items := slices.Clone(*patch.WBS)
		if items == nil {
			items = []domain.WBSItem{}
		}
		for j := range items {
			if items[j].ID == "" {
				items[j].ID = newWBSItemID()
			}
		}
		p.WBS = items
	}
	return true
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// DeleteProject removes project id from the current agency.
func (r *Repository) DeleteProject(id int64) bool {
	a := r.currentAgency()
	if a == nil {
		return false
	}
	i := projectIndex(a, id)
	if i < 0 {
		return false
	}
	a.Projects = slices.Delete(a.Projects, i, i+1)
	return true
}

// DuplicateProject copies project id under a new id, marking the copy as
// not started. The copy is prepended like a new project.
func (r *Repository) DuplicateProject(id int64) (domain.Project, bool) {
	a := r.currentAgency()
	if a == nil {
		return domain.Project{}, false
	}
	i := projectIndex(a, id)
	if i < 0 {
		return domain.Project{}, false
	}
	cp := a.Projects[i].Clone()
	cp.ID = r.ids.next()
	cp.Name += " (Copy)"
	cp.ProjectCode += "-COPY"
	cp.Progress = 0
	cp.ProgressLevel = domain.ProgressNotStart
	cp.ActivityDate = ""
	a.Projects = slices.Insert(a.Projects, 0, cp)
	return cp.Clone(), true
}

// ResetAllProjectDates clears the activity date of every project in every
// agency and reports whether any date was set.
func (r *Repository) ResetAllProjectDates() bool {
	changed := false
	for i := range r.agencies {
		for j := range r.agencies[i].Projects {
			p := &r.agencies[i].Projects[j]
			if p.ActivityDate != "" {
				p.ActivityDate = ""
				changed = true
			}
		}
	}
	return changed
}

// AddCategory appends name to the current agency's categories unless present.
func (r *Repository) AddCategory(name string) bool {
	name = strings.TrimSpace(name)
	a := r.currentAgency()
	if a == nil || name == "" || a.HasCategory(name) {
		return false
	}
	a.Categories = append(a.Categories, name)
	return true
}

// DeleteCategory removes name from the current agency's categories. Projects
// keep the orphaned value.
func (r *Repository) DeleteCategory(name string) bool {
	a := r.currentAgency()
	if a == nil {
		return false
	}
	i := slices.Index(a.Categories, name)
	if i < 0 {
		return false
	}
	a.Categories = slices.Delete(a.Categories, i, i+1)
	return true
}

// UpdateTotalAllocatedBudget overwrites the current agency's allocation.
func (r *Repository) UpdateTotalAllocatedBudget(amount float64) bool {
	a := r.currentAgency()
	if a == nil {
		return false
	}
	a.TotalAllocatedBudget = amount
	return true
}
