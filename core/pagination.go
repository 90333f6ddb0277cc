package core

import "math"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps (Page-1)*Limit within an int32 OFFSET.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// Pagination is a simple skip/limit window. Page is 1-based.
type Pagination struct {
	Page  int `query:"page" json:"page"`
	Limit int `query:"limit" json:"limit"`
}

// Clean clamps Page and Limit to sane values.
func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	} else if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	} else if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// Offset is 0 for pages that are out of range.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.Limit < 1 || p.Page > MaxPage || p.Limit > MaxPageLimit {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
