package auth

import (
	"context"
	"testing"
)

func TestIdentityRoles(t *testing.T) {
	staff := &Identity{UID: "ops-7", Roles: []string{"Staff"}}
	if !staff.HasRole(" staff ") || !staff.IsOperator() {
		t.Fatalf("expected staff identity to be an operator")
	}
	customer := &Identity{UID: "user-1", Roles: []string{RoleUser}}
	if customer.IsOperator() || customer.HasRole("") {
		t.Fatalf("customer must not be an operator")
	}
	var missing *Identity
	if missing.IsOperator() || missing.Owns("user-1") {
		t.Fatalf("nil identity must hold no roles")
	}
}

func TestIdentityOwns(t *testing.T) {
	id := &Identity{UID: "user-1"}
	if !id.Owns(" user-1") {
		t.Fatalf("expected ownership of own id")
	}
	if id.Owns("user-2") || (&Identity{}).Owns("") {
		t.Fatalf("unexpected ownership")
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("expected no identity on bare context")
	}
	ctx := WithIdentity(context.Background(), &Identity{UID: "user-3"})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UID != "user-3" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if _, ok := IdentityFromContext(WithIdentity(context.Background(), nil)); ok {
		t.Fatalf("nil identity must not be reported")
	}
}
