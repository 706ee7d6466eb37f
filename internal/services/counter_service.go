package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/api/internal/repositories"
)

const (
	defaultOrderNumberPrefix = "ORD"
	orderCounterScope        = "orders"
)

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository repositories.CounterRepository
	Clock      func() time.Time
	// Location decides which calendar day an order number belongs to. Defaults to UTC.
	Location *time.Location
	Prefix   string
}

type counterService struct {
	repo     repositories.CounterRepository
	clock    func() time.Time
	location *time.Location
	prefix   string
}

// NewCounterService constructs the order numbering authority.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	prefix := strings.TrimSpace(deps.Prefix)
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}
	return &counterService{repo: deps.Repository, clock: clock, location: loc, prefix: prefix}, nil
}

// NextOrderNumber atomically increments the day's counter and formats PREFIX-YYYYMMDD-NNN.
// The sequence widens past three digits rather than wrapping.
func (s *counterService) NextOrderNumber(ctx context.Context) (string, error) {
	day := s.clock().In(s.location).Format("20060102")

	seq, err := s.repo.Next(ctx, orderCounterScope+":"+day, 1)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) && counterErr.Code == repositories.CounterErrorInvalidInput {
			return "", fmt.Errorf("%w: %s", ErrOrderValidation, counterErr.Message)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: order counter: %v", ErrPersistence, err)
	}
	return fmt.Sprintf("%s-%s-%03d", s.prefix, day, seq), nil
}
