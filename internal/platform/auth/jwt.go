package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
)

// HMACTokenVerifier verifies HS256 bearer tokens signed with a shared secret. It backs local and
// non-Firebase deployments and yields tokens shaped like Firebase ID tokens.
type HMACTokenVerifier struct {
	secret []byte
	issuer string
}

// NewHMACTokenVerifier constructs a verifier for the given secret and optional issuer.
func NewHMACTokenVerifier(secret, issuer string) (*HMACTokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &HMACTokenVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}, nil
}

// VerifyIDToken parses and validates the token, mapping expiry to ErrTokenExpired.
func (v *HMACTokenVerifier) VerifyIDToken(_ context.Context, raw string) (*firebaseauth.Token, error) {
	if v == nil {
		return nil, ErrTokenInvalid
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		var validation *jwt.ValidationError
		if errors.As(err, &validation) && validation.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	subject, _ := claims["sub"].(string)
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	token := &firebaseauth.Token{
		UID:     subject,
		Subject: subject,
		Claims:  map[string]any(claims),
	}
	if iss, ok := claims["iss"].(string); ok {
		token.Issuer = iss
	}
	if exp, ok := claims["exp"].(float64); ok {
		token.Expires = int64(exp)
	}
	if iat, ok := claims["iat"].(float64); ok {
		token.IssuedAt = int64(iat)
	}
	return token, nil
}
