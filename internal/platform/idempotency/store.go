package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long a completed response remains replayable.
const DefaultTTL = 24 * time.Hour

// State is the lifecycle state of a stored key.
type State string

const (
	StateInFlight  State = "in_flight"
	StateCompleted State = "completed"
)

// Outcome describes what Begin found for a key.
type Outcome int

const (
	// OutcomeAcquired means the caller now owns the key and must run the handler.
	OutcomeAcquired Outcome = iota
	// OutcomeReplay means a completed response exists and should be written back.
	OutcomeReplay
	// OutcomeInFlight means another request holds the key.
	OutcomeInFlight
)

// Record is the persisted form of a key and, once completed, its captured response.
type Record struct {
	Key         string              `json:"key"`
	Fingerprint string              `json:"fingerprint"`
	State       State               `json:"state"`
	Status      int                 `json:"status,omitempty"`
	Header      map[string][]string `json:"header,omitempty"`
	Body        []byte              `json:"body,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// Expired reports whether the record is past its retention window at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Response is the captured handler output stored against a key.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store persists keys. Begin must be atomic: exactly one concurrent caller acquires a fresh key.
type Store interface {
	Begin(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Outcome, Record, error)
	Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Abandon(ctx context.Context, key string) error
	Purge(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key already used for a different request")

func newInFlight(key, fingerprint string, now time.Time, ttl time.Duration) Record {
	return Record{
		Key:         key,
		Fingerprint: fingerprint,
		State:       StateInFlight,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func completed(existing Record, resp Response, now time.Time, ttl time.Duration) Record {
	existing.State = StateCompleted
	existing.Status = resp.Status
	existing.Header = storableHeader(resp.Header)
	existing.Body = append([]byte(nil), resp.Body...)
	existing.ExpiresAt = now.Add(ttl)
	if existing.CreatedAt.IsZero() {
		existing.CreatedAt = now
	}
	return existing
}

func outcomeOf(record Record, fingerprint string) (Outcome, error) {
	if record.Fingerprint != fingerprint {
		return 0, ErrFingerprintMismatch
	}
	if record.State == StateCompleted {
		return OutcomeReplay, nil
	}
	return OutcomeInFlight, nil
}

func documentID(key string) string {
	return hashHex([]byte(strings.TrimSpace(key)))
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func storableHeader(header http.Header) map[string][]string {
	out := make(map[string][]string, len(header))
	for name, values := range header {
		name = http.CanonicalHeaderKey(name)
		switch name {
		case "Content-Length", "Date", "Connection", "Transfer-Encoding", "Set-Cookie":
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
