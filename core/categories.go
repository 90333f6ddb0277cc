package core

import "sort"

// Category is a complaint category tag. The set is fixed.
type Category string

const (
	CategoryAcademic         Category = "academic"
	CategoryAdministrative   Category = "administrative"
	CategoryInfrastructure   Category = "infrastructure"
	CategoryFinancial        Category = "financial"
	CategoryNetwork          Category = "network"
	CategoryPassword         Category = "password"
	CategoryAdditionalCredit Category = "additional_credit"
	CategoryOther            Category = "other"
)

var Categories = []Category{
	CategoryAcademic,
	CategoryAdministrative,
	CategoryInfrastructure,
	CategoryFinancial,
	CategoryNetwork,
	CategoryPassword,
	CategoryAdditionalCredit,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// CategorySet is an unordered set of categories.
type CategorySet map[Category]struct{}

func NewCategorySet(cats ...Category) CategorySet {
	set := make(CategorySet, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

func (s CategorySet) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Slice returns the categories sorted by name.
func (s CategorySet) Slice() []Category {
	cats := make([]Category, 0, len(s))
	for c := range s {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Strings is used when persisting a set.
func (s CategorySet) Strings() []string {
	cats := s.Slice()
	strs := make([]string, 0, len(cats))
	for _, c := range cats {
		strs = append(strs, string(c))
	}
	return strs
}

// ParseCategories keeps the valid categories in strs, dropping duplicates and unknown tags.
func ParseCategories(strs []string) []Category {
	set := make(CategorySet, len(strs))
	for _, s := range strs {
		if c := Category(CleanString(s, true)); c.IsValid() {
			set[c] = struct{}{}
		}
	}
	return set.Slice()
}
