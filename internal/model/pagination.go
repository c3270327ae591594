package model

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest is a normalized 1-indexed page request.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest applies defaults and bounds: page is at least 1, a
// non-positive limit becomes DefaultPageLimit and limit never exceeds MaxPageLimit.
// Page is capped so Offset cannot overflow.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return PageRequest{Page: page, Limit: limit}
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination reports at least one page, so an empty result is "page 1 of 1".
func NewPagination(req PageRequest, total int) Pagination {
	totalPages := (total + req.Limit - 1) / req.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// TaskPage is one page of an owner's tasks.
type TaskPage struct {
	Tasks      []Task
	Pagination Pagination
}
