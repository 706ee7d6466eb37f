package domain

import (
	"time"
)

// Pagination defines page/limit paging inputs for list operations. Page is 1-based.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of records skipped before the requested page.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// Page packages list results together with the totals needed to render pagination controls.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int
}

// TotalPages reports how many pages the full result set spans.
func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page exists after the current one.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrev reports whether a page exists before the current one.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
