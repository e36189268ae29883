package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"budgetcore/pkg/domain"
)

func newTestRepository() *Repository {
	return NewRepository(domain.DefaultSnapshot(), newStepClock())
}

func TestRepositorySeedsDefaultAgency(t *testing.T) {
	r := NewRepository(domain.Snapshot{}, nil)
	a := r.CurrentAgency()
	if a.ID != domain.DefaultAgencyID || a.Name != "หน่วยงานเริ่มต้น" || a.TotalAllocatedBudget != 100000000 {
		t.Fatalf("unexpected default agency %+v", a)
	}
	if len(r.Projects()) != 1 {
		t.Fatalf("expected seeded sample project, got %d", len(r.Projects()))
	}
}

func TestAddProjectPrependsWithFreshID(t *testing.T) {
	r := newTestRepository()
	p := r.AddProject(domain.Project{
		Name:     "X",
		Budget:   500,
		Progress: 80,
		WBS:      []domain.WBSItem{{Description: "pour", Quantity: 2, UnitPrice: 250}},
	})
	projects := r.Projects()
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ID != p.ID || projects[0].Name != "X" {
		t.Fatalf("new project not at index 0: %+v", projects[0])
	}
	if p.ID == domain.SampleProject().ID || p.ID == 0 {
		t.Fatalf("expected fresh id, got %d", p.ID)
	}
	if p.Progress != 0 {
		t.Fatalf("expected progress reset, got %d", p.Progress)
	}
	if p.WBS[0].ID == "" {
		t.Fatalf("expected generated WBS id")
	}
}

func TestProjectIDsAreUniqueWithinOneMillisecond(t *testing.T) {
	frozen := ClockFunc(func() time.Time { return time.UnixMilli(1700000000000) })
	r := NewRepository(domain.DefaultSnapshot(), frozen)
	seen := map[int64]bool{}
	for i := 0; i < 50; i++ {
		p := r.AddProject(domain.Project{Name: "p"})
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
	}
	cp, ok := r.DuplicateProject(r.Projects()[0].ID)
	if !ok || seen[cp.ID] {
		t.Fatalf("duplicate collided: %d", cp.ID)
	}
}

func TestUpdateProjectMergesPatch(t *testing.T) {
	r := newTestRepository()
	id := r.Projects()[0].ID
	name := "Renamed"
	level := domain.ProgressDone
	if !r.UpdateProject(id, ProjectPatch{Name: &name, ProgressLevel: &level}) {
		t.Fatalf("expected update to apply")
	}
	p, _ := r.Project(id)
	if p.Name != name || p.ProgressLevel != level {
		t.Fatalf("patch not applied: %+v", p)
	}
	if p.ProjectCode != "PRJ-001" || p.Budget != 1500000 || len(p.WBS) != 3 {
		t.Fatalf("untouched fields changed: %+v", p)
	}
	if r.UpdateProject(424242, ProjectPatch{Name: &name}) {
		t.Fatalf("expected unknown id to be a no-op")
	}
}

func TestUpdateProjectNeverCrossesAgencies(t *testing.T) {
	r := newTestRepository()
	sampleID := r.Projects()[0].ID
	r.AddAgency("Second")
	name := "hijack"
	if r.UpdateProject(sampleID, ProjectPatch{Name: &name}) {
		t.Fatalf("update reached a project of another agency")
	}
	if r.DeleteProject(sampleID) {
		t.Fatalf("delete reached a project of another agency")
	}
	r.SwitchAgency(domain.DefaultAgencyID)
	if p, ok := r.Project(sampleID); !ok || p.Name == name {
		t.Fatalf("sample project modified: %+v", p)
	}
}

func TestSwitchingAgenciesIsolatesProjects(t *testing.T) {
	r := newTestRepository()
	first := r.AddProject(domain.Project{Name: "first-only"})
	second := r.AddAgency("Second")
	if len(r.Projects()) != 0 {
		t.Fatalf("new agency should start empty, got %+v", r.Projects())
	}
	r.AddProject(domain.Project{Name: "second-only"})
	for _, p := range r.Projects() {
		if p.ID == first.ID {
			t.Fatalf("project leaked across agencies")
		}
	}
	if !r.SwitchAgency(domain.DefaultAgencyID) {
		t.Fatalf("switch back failed")
	}
	for _, p := range r.Projects() {
		if p.Name == "second-only" {
			t.Fatalf("project leaked across agencies")
		}
	}
	if r.SwitchAgency("missing") || r.CurrentAgencyID() != domain.DefaultAgencyID {
		t.Fatalf("unknown id must be ignored")
	}
	if second.Passcode != domain.DefaultAgencyPasscode || second.TotalAllocatedBudget != domain.DefaultBudget {
		t.Fatalf("unexpected new agency defaults %+v", second)
	}
	if !reflect.DeepEqual(second.Categories, domain.DefaultCategories()) {
		t.Fatalf("unexpected categories %v", second.Categories)
	}
}

func TestDeleteAgencyKeepsAtLeastOne(t *testing.T) {
	r := newTestRepository()
	before := r.Snapshot()
	ok, err := r.DeleteAgency(domain.DefaultAgencyID)
	if ok || !errors.Is(err, ErrLastAgency) {
		t.Fatalf("expected ErrLastAgency, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(before, r.Snapshot()) {
		t.Fatalf("repository mutated by refused delete")
	}

	b := r.AddAgency("B")
	c := r.AddAgency("C")
	for _, id := range []string{c.ID, b.ID, domain.DefaultAgencyID, domain.DefaultAgencyID} {
		_, _ = r.DeleteAgency(id)
		if len(r.Agencies()) < 1 {
			t.Fatalf("current agency must remain in the list")
		}
	}
	if len(r.Agencies()) != 1 {
		t.Fatalf("expected one agency left, got %d", len(r.Agencies()))
	}
}

func TestDeleteCurrentAgencyFallsBackToFirst(t *testing.T) {
	r := newTestRepository()
	b := r.AddAgency("B")
	if ok, err := r.DeleteAgency(b.ID); !ok || err != nil {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if r.CurrentAgencyID() != domain.DefaultAgencyID {
		t.Fatalf("expected first agency current, got %s", r.CurrentAgencyID())
	}
	if ok, err := r.DeleteAgency("missing"); ok || err != nil {
		t.Fatalf("unknown delete should be a no-op, ok=%v err=%v", ok, err)
	}
}

func TestDuplicateProject(t *testing.T) {
	r := newTestRepository()
	src := r.AddProject(domain.Project{
		Name:          "Bridge",
		ProjectCode:   "PRJ-5",
		Budget:        750,
		ProgressLevel: domain.ProgressInProgress,
		ActivityDate:  "2024-02-01",
		Owner:         "Roads",
		WBS:           []domain.WBSItem{{ID: "w1", Description: "deck", Quantity: 3, UnitPrice: 250}},
	})
	cp, ok := r.DuplicateProject(src.ID)
	if !ok {
		t.Fatalf("duplicate failed")
	}
	if cp.Name != "Bridge (Copy)" || cp.ProjectCode != "PRJ-5-COPY" {
		t.Fatalf("unexpected copy naming %+v", cp)
	}
	if cp.ProgressLevel != domain.ProgressNotStart || cp.ActivityDate != "" || cp.Progress != 0 {
		t.Fatalf("copy progress not reset %+v", cp)
	}
	if cp.Budget != src.Budget || !reflect.DeepEqual(cp.WBS, src.WBS) || cp.Owner != src.Owner {
		t.Fatalf("copy lost fields %+v", cp)
	}
	if cp.ID == src.ID {
		t.Fatalf("copy reused id")
	}
	if r.Projects()[0].ID != cp.ID {
		t.Fatalf("copy not prepended")
	}
	items := []domain.WBSItem{{ID: "w1", Description: "changed"}}
	r.UpdateProject(cp.ID, ProjectPatch{WBS: &items})
	if orig, _ := r.Project(src.ID); orig.WBS[0].Description != "deck" {
		t.Fatalf("copy shares WBS with source")
	}
	if _, ok := r.DuplicateProject(99); ok {
		t.Fatalf("unknown source must be a no-op")
	}
}

func TestResetAllProjectDatesTouchesEveryAgency(t *testing.T) {
	r := newTestRepository()
	r.AddProject(domain.Project{Name: "a", ActivityDate: "2024-01-01"})
	r.AddAgency("B")
	r.AddProject(domain.Project{Name: "b", ActivityDate: "2024-01-02"})
	if !r.ResetAllProjectDates() {
		t.Fatalf("expected dates to change")
	}
	for _, a := range r.Agencies() {
		for _, p := range a.Projects {
			if p.ActivityDate != "" {
				t.Fatalf("activity date kept on %s/%s", a.Name, p.Name)
			}
		}
	}
	if r.ResetAllProjectDates() {
		t.Fatalf("second reset should report no change")
	}
}

func TestCategories(t *testing.T) {
	r := newTestRepository()
	if !r.AddCategory("Roads") || r.AddCategory("Roads") {
		t.Fatalf("expected AddCategory to be idempotent")
	}
	count := 0
	for _, c := range r.CurrentAgency().Categories {
		if c == "Roads" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Roads, got %d", count)
	}
	p := r.AddProject(domain.Project{Name: "road", Category: "Roads"})
	if !r.DeleteCategory("Roads") || r.DeleteCategory("Roads") {
		t.Fatalf("unexpected delete result")
	}
	stored, _ := r.Project(p.ID)
	if stored.Category != "Roads" {
		t.Fatalf("project category rewritten: %s", stored.Category)
	}
	if label := r.CurrentAgency().CategoryLabel(stored); label != domain.OtherCategory {
		t.Fatalf("expected orphan label, got %s", label)
	}
}

func TestAgencyFieldUpdates(t *testing.T) {
	r := newTestRepository()
	if !r.UpdateAgencyName(domain.DefaultAgencyID, "Works") || !r.UpdateAgencyPasscode(domain.DefaultAgencyID, "7777") {
		t.Fatalf("expected updates to apply")
	}
	if r.UpdateAgencyName("missing", "x") || r.UpdateAgencyPasscode("missing", "x") {
		t.Fatalf("unknown id must be a no-op")
	}
	a, ok := r.FindAgencyByPasscode("7777")
	if !ok || a.Name != "Works" {
		t.Fatalf("passcode lookup failed: %+v", a)
	}
	if _, ok := r.FindAgencyByPasscode(""); ok {
		t.Fatalf("empty passcode must not match")
	}
	r.UpdateTotalAllocatedBudget(-5)
	if r.CurrentAgency().TotalAllocatedBudget != -5 {
		t.Fatalf("allocation not overwritten")
	}
}

func TestClearAllDataReseeds(t *testing.T) {
	r := newTestRepository()
	r.AddAgency("B")
	r.AddProject(domain.Project{Name: "gone"})
	r.ClearAllData()
	if !reflect.DeepEqual(r.Snapshot(), func() domain.Snapshot { s := domain.DefaultSnapshot(); s.Normalize(); return s }()) {
		t.Fatalf("unexpected state after clear: %+v", r.Snapshot())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := newTestRepository()
	snap := r.Snapshot()
	snap.Agencies[0].Projects[0].Name = "mutated"
	snap.Agencies[0].Categories[0] = "mutated"
	if r.Projects()[0].Name == "mutated" || r.CurrentAgency().Categories[0] == "mutated" {
		t.Fatalf("snapshot aliases repository state")
	}
}
