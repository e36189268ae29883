package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWBSLineTotal(t *testing.T) {
	item := WBSItem{Quantity: 3, UnitPrice: 0.1}
	if got := item.LineTotal(); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3, got %s", got)
	}
}

func TestProjectWBSTotal(t *testing.T) {
	p := SampleProject()
	if got := p.WBSTotal(); !got.Equal(decimal.NewFromInt(1500000)) {
		t.Fatalf("expected sample WBS total 1500000, got %s", got)
	}
	if got := (Project{}).WBSTotal(); !got.IsZero() {
		t.Fatalf("expected zero for empty WBS, got %s", got)
	}
}

func TestAgencyCloneIsDeep(t *testing.T) {
	orig := DefaultAgency()
	cp := orig.Clone()
	cp.Projects[0].WBS[0].Description = "changed"
	cp.Categories[0] = "changed"
	cp.Projects[0].Name = "changed"
	if orig.Projects[0].WBS[0].Description == "changed" {
		t.Fatalf("WBS shared between clone and original")
	}
	if orig.Categories[0] == "changed" {
		t.Fatalf("categories shared between clone and original")
	}
	if orig.Projects[0].Name == "changed" {
		t.Fatalf("projects shared between clone and original")
	}
}

func TestCategoryLabel(t *testing.T) {
	a := Agency{Categories: []string{"roads"}}
	if got := a.CategoryLabel(Project{Category: "roads"}); got != "roads" {
		t.Fatalf("expected roads, got %s", got)
	}
	if got := a.CategoryLabel(Project{Category: "bridges"}); got != OtherCategory {
		t.Fatalf("expected orphaned category to map to %s, got %s", OtherCategory, got)
	}
	if got := a.CategoryLabel(Project{}); got != OtherCategory {
		t.Fatalf("expected empty category to map to %s, got %s", OtherCategory, got)
	}
}

func TestUncategorizedDistinguishesDefinedOther(t *testing.T) {
	a := Agency{Categories: []string{OtherCategory}}
	if a.Uncategorized(Project{Category: OtherCategory}) {
		t.Fatalf("defined %q category reported as uncategorized", OtherCategory)
	}
	if !a.Uncategorized(Project{Category: "bridges"}) || !a.Uncategorized(Project{}) {
		t.Fatalf("unknown and blank categories must be uncategorized")
	}
}

func TestSnapshotNormalize(t *testing.T) {
	s := Snapshot{
		Agencies:        []Agency{{ID: "a", Projects: []Project{{ID: 1}}}, {ID: "b"}},
		CurrentAgencyID: "missing",
	}
	s.Normalize()
	if s.CurrentAgencyID != "a" {
		t.Fatalf("expected current agency to fall back to first, got %q", s.CurrentAgencyID)
	}
	if s.Agencies[1].Projects == nil || s.Agencies[1].Categories == nil || s.Agencies[0].Projects[0].WBS == nil {
		t.Fatalf("expected nil slices to be normalised")
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "null") {
		t.Fatalf("normalised snapshot encoded null: %s", data)
	}
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(DefaultSnapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"currentAgencyId"`, `"totalAllocatedBudget"`, `"projectCode"`, `"progressLevel"`, `"unitPrice"`, `"wbs"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("expected %s in %s", field, data)
		}
	}
	if strings.Contains(string(data), `"activityDate"`) {
		t.Fatalf("empty activityDate should be omitted")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"admin": RoleAdmin, "reader": RoleReader, "guest": RoleGuest, "": RoleGuest, "root": RoleGuest}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q)=%s want %s", in, got, want)
		}
	}
	if RoleReader.CanWrite() || RoleGuest.CanWrite() || !RoleAdmin.CanWrite() {
		t.Fatalf("only admin may write")
	}
}

func TestProgressLevelValid(t *testing.T) {
	for _, lvl := range ProgressLevels() {
		if !lvl.Valid() {
			t.Fatalf("expected %s valid", lvl)
		}
	}
	if ProgressLevel("Paused").Valid() {
		t.Fatalf("unexpected valid level")
	}
}
