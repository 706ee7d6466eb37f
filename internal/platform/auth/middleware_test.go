package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	code, _ := body["error"].(string)
	return code
}

func TestRequire_AllowsValidToken(t *testing.T) {
	verifier := &stubTokenVerifier{
		token: &firebaseauth.Token{
			UID: "uid-123",
			Claims: map[string]interface{}{
				"role":  []interface{}{"staff", "Admin", "staff"},
				"email": "user@example.com",
			},
		},
	}
	authn := NewAuthenticator(verifier)

	called := false
	rec := serve(t, authn.Require(RoleStaff), "Bearer token-abc", func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UID != "uid-123" || identity.Email != "user@example.com" {
			t.Fatalf("unexpected identity %+v", identity)
		}
		if len(identity.Roles) != 2 || !identity.HasRole(RoleAdmin) || !identity.IsOperator() {
			t.Fatalf("expected deduplicated roles, got %v", identity.Roles)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "token-abc" {
		t.Fatalf("expected token forwarded, got %q", verifier.received)
	}
}

func TestRequire_FallbackRole(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-1", Claims: map[string]interface{}{}}}
	authn := NewAuthenticator(verifier)

	rec := serve(t, authn.Require(), "Bearer t", func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if !identity.HasRole(RoleUser) || identity.IsOperator() {
			t.Fatalf("expected fallback user role, got %v", identity.Roles)
		}
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequire_RoleMapClaim(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-1", Claims: map[string]interface{}{
		"roles": map[string]interface{}{"admin": true, "staff": false},
	}}}
	authn := NewAuthenticator(verifier, WithRoleClaim("roles"))

	rec := serve(t, authn.Require(RoleStaff), "Bearer t", func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "insufficient_role" {
		t.Fatalf("expected insufficient_role, got %q", code)
	}
}

func TestRequire_RejectsMissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubTokenVerifier{})
	for _, header := range []string{"", "Basic abc", "Bearer   "} {
		rec := serve(t, authn.Require(), header, func(http.ResponseWriter, *http.Request) {
			t.Fatalf("handler must not run")
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
		if code := decodeErrorCode(t, rec); code != "unauthenticated" {
			t.Fatalf("header %q: expected unauthenticated, got %q", header, code)
		}
	}
}

func TestRequire_VerificationErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		code string
	}{
		"expired": {err: ErrTokenExpired, code: "token_expired"},
		"invalid": {err: errors.New("boom"), code: "invalid_token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			authn := NewAuthenticator(&stubTokenVerifier{err: tc.err})
			rec := serve(t, authn.Require(), "Bearer t", func(http.ResponseWriter, *http.Request) {
				t.Fatalf("handler must not run")
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tc.code {
				t.Fatalf("expected %s, got %q", tc.code, code)
			}
		})
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestHMACTokenVerifier(t *testing.T) {
	verifier, err := NewHMACTokenVerifier("s3cret", "storefront")
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	now := time.Now()

	valid := signHS256(t, "s3cret", jwt.MapClaims{
		"sub":  "user-9",
		"iss":  "storefront",
		"exp":  now.Add(time.Hour).Unix(),
		"role": "admin",
	})
	token, err := verifier.VerifyIDToken(context.Background(), valid)
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if token.UID != "user-9" || token.Claims["role"] != "admin" {
		t.Fatalf("unexpected token %+v", token)
	}

	expired := signHS256(t, "s3cret", jwt.MapClaims{"sub": "user-9", "iss": "storefront", "exp": now.Add(-time.Minute).Unix()})
	if _, err := verifier.VerifyIDToken(context.Background(), expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	wrongKey := signHS256(t, "other", jwt.MapClaims{"sub": "user-9", "iss": "storefront"})
	if _, err := verifier.VerifyIDToken(context.Background(), wrongKey); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong key, got %v", err)
	}

	wrongIssuer := signHS256(t, "s3cret", jwt.MapClaims{"sub": "user-9", "iss": "elsewhere"})
	if _, err := verifier.VerifyIDToken(context.Background(), wrongIssuer); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for issuer, got %v", err)
	}

	noSubject := signHS256(t, "s3cret", jwt.MapClaims{"iss": "storefront"})
	if _, err := verifier.VerifyIDToken(context.Background(), noSubject); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing subject, got %v", err)
	}
}

func TestHMACTokenVerifier_WorksWithAuthenticator(t *testing.T) {
	verifier, err := NewHMACTokenVerifier("s3cret", "")
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	raw := signHS256(t, "s3cret", jwt.MapClaims{"sub": "ops-1", "role": []string{"staff"}})

	rec := serve(t, NewAuthenticator(verifier).Require(RoleAdmin, RoleStaff), "Bearer "+raw, func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if identity.UID != "ops-1" || !identity.HasRole(RoleStaff) {
			t.Fatalf("unexpected identity %+v", identity)
		}
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
