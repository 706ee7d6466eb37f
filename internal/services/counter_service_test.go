package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storefront/api/internal/repositories"
)

type stubCounterRepository struct {
	mu        sync.Mutex
	nextFn    func(context.Context, string, int64) (int64, error)
	nextCalls []counterCall
}

type counterCall struct {
	ID   string
	Step int64
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	s.mu.Lock()
	s.nextCalls = append(s.nextCalls, counterCall{ID: counterID, Step: step})
	s.mu.Unlock()
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 0, nil
}

func TestCounterServiceNextOrderNumberFormatsDailySequence(t *testing.T) {
	repo := &stubCounterRepository{nextFn: func(context.Context, string, int64) (int64, error) { return 7, nil }}
	svc, err := NewCounterService(CounterServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCounterService: %v", err)
	}

	number, err := svc.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber: %v", err)
	}
	if number != "ORD-20240309-007" {
		t.Fatalf("unexpected number %s", number)
	}
	if len(repo.nextCalls) != 1 || repo.nextCalls[0] != (counterCall{ID: "orders:20240309", Step: 1}) {
		t.Fatalf("unexpected counter calls %+v", repo.nextCalls)
	}
}

func TestCounterServiceUsesConfiguredLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	repo := &stubCounterRepository{nextFn: func(context.Context, string, int64) (int64, error) { return 1234, nil }}
	svc, err := NewCounterService(CounterServiceDeps{
		Repository: repo,
		Location:   tokyo,
		Prefix:     "SO",
		Clock:      func() time.Time { return time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCounterService: %v", err)
	}

	number, err := svc.NextOrderNumber(context.Background())
	if err != nil {
		t.Fatalf("NextOrderNumber: %v", err)
	}
	if number != "SO-20240310-1234" {
		t.Fatalf("unexpected number %s", number)
	}
}

func TestCounterServiceMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"invalid", repositories.NewCounterError(repositories.CounterErrorInvalidInput, "bad id", nil), ErrOrderValidation},
		{"cancelled", context.Canceled, context.Canceled},
		{"backend", errors.New("boom"), ErrPersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubCounterRepository{nextFn: func(context.Context, string, int64) (int64, error) { return 0, tc.err }}
			svc, err := NewCounterService(CounterServiceDeps{Repository: repo})
			if err != nil {
				t.Fatalf("NewCounterService: %v", err)
			}
			if _, err := svc.NextOrderNumber(context.Background()); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewCounterServiceRequiresRepository(t *testing.T) {
	if _, err := NewCounterService(CounterServiceDeps{}); err == nil {
		t.Fatalf("expected error")
	}
}
