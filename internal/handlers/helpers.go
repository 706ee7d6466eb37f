package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/platform/httpx"
	"github.com/storefront/api/internal/platform/pagination"
)

// decodeBody reads at most limit bytes of JSON into dst and writes the error response itself
// when it returns false. An empty body is accepted only when optional is set.
func decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, optional bool, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return rejectEmpty(ctx, w, optional)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return rejectOversized(ctx, w)
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return false
	}
	if int64(len(raw)) > limit {
		return rejectOversized(ctx, w)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return rejectEmpty(ctx, w, optional)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func rejectEmpty(ctx context.Context, w http.ResponseWriter, optional bool) bool {
	if optional {
		return true
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is empty", http.StatusBadRequest))
	return false
}

func rejectOversized(ctx context.Context, w http.ResponseWriter) bool {
	httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	return false
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func parsePagination(r *http.Request, defaultLimit int) (domain.Pagination, error) {
	params, err := pagination.FromRequest(r, pagination.Options{DefaultLimit: defaultLimit, MaxLimit: pagination.DefaultMaxLimit})
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{Page: params.Page, Limit: params.Limit}, nil
}

func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.DateOnly, value); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, errors.New("must be RFC3339 timestamp or YYYY-MM-DD date")
}

func pointerTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
