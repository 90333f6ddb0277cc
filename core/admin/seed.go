package admin

import "github.com/trezcool/campusdesk/core"

// SeedAccount is a legacy admin account and the permissions it is created with.
type SeedAccount struct {
	Username    string
	Name        string
	Level       Level
	Permissions Permissions
}

// SeedAccounts is applied once by `admin seedadmins`; after that the persisted permissions are authoritative.
var SeedAccounts = []SeedAccount{
	{
		Username: "huissepf001",
		Name:     "Academic Affairs Desk",
		Level:    LevelAdmin,
		Permissions: Permissions{
			VisibleCategories: []core.Category{core.CategoryAcademic, core.CategoryAdditionalCredit},
		},
	},
	{
		Username: "huissepf002",
		Name:     "Registry & Bursary Desk",
		Level:    LevelAdmin,
		Permissions: Permissions{
			VisibleCategories: []core.Category{core.CategoryAdministrative, core.CategoryFinancial},
		},
	},
	{
		Username: "huissepf003",
		Name:     "ICT Support Desk",
		Level:    LevelSubAdmin,
		Permissions: Permissions{
			VisibleCategories: []core.Category{core.CategoryNetwork, core.CategoryPassword},
		},
	},
	{
		Username: "huissepf004",
		Name:     "Works & Services Desk",
		Level:    LevelSubAdmin,
		Permissions: Permissions{
			VisibleCategories: []core.Category{core.CategoryInfrastructure},
		},
	},
	{
		Username: "huissepf005",
		Name:     "Student Affairs Office",
		Level:    LevelAdmin,
		Permissions: Permissions{
			CanSeeAllComplaints: true,
			CanManageAdmins:     true,
		},
	},
	{
		Username: "huissepf006",
		Name:     "General Enquiries Desk",
		Level:    LevelSubAdmin,
		Permissions: Permissions{
			VisibleCategories: []core.Category{core.CategoryOther},
		},
	},
}
