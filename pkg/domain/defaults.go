package domain

// Seed values for new and reset agencies.
const (
	DefaultAgencyID       = "default"
	DefaultAgencyName     = "หน่วยงานเริ่มต้น"
	DefaultBudget         = 100000000
	DefaultAgencyPasscode = "1111"
	DefaultAppPasscode    = "1234"
)

// DefaultCategories returns a fresh copy of the starter category set.
func DefaultCategories() []string {
	return []string{"งานก่อสร้าง", "งานปรับปรุงซ่อมแซม", "งานระบบสาธารณูปโภค", "งานจัดซื้อจัดจ้าง"}
}

// SampleProject returns the demonstration project seeded into a default agency.
func SampleProject() Project {
	return Project{
		ID:            1,
		ProjectCode:   "PRJ-001",
		Name:          "โครงการก่อสร้างอาคารตัวอย่าง",
		Budget:        1500000,
		Status:        StatusPlanning,
		Progress:      0,
		ProgressLevel: ProgressPlanning,
		Owner:         "กองช่าง",
		Location:      "สำนักงานใหญ่",
		Category:      "งานก่อสร้าง",
		WBS: []WBSItem{
			{ID: "wbs-1", Description: "งานฐานราก", Quantity: 1, Unit: "งาน", UnitPrice: 500000},
			{ID: "wbs-2", Description: "งานโครงสร้าง", Quantity: 1, Unit: "งาน", UnitPrice: 700000},
			{ID: "wbs-3", Description: "งานสถาปัตยกรรม", Quantity: 1, Unit: "งาน", UnitPrice: 300000},
		},
	}
}

// DefaultAgency returns the seeded agency used at first start and after a
// full reset.
func DefaultAgency() Agency {
	return Agency{
		ID:                   DefaultAgencyID,
		Name:                 DefaultAgencyName,
		Projects:             []Project{SampleProject()},
		Categories:           DefaultCategories(),
		TotalAllocatedBudget: DefaultBudget,
		Passcode:             DefaultAgencyPasscode,
	}
}

// DefaultSnapshot returns a snapshot holding only the default agency.
func DefaultSnapshot() Snapshot {
	return Snapshot{Agencies: []Agency{DefaultAgency()}, CurrentAgencyID: DefaultAgencyID}
}
