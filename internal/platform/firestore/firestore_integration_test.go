//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/platform/firestore/firestoretest"
)

type sampleEntity struct {
	Name  string `firestore:"name"`
	Count int64  `firestore:"count"`
}

func TestCollectionIntegration(t *testing.T) {
	provider := firestoretest.NewProvider(t, "test-project")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	coll := pfirestore.NewCollection[sampleEntity](provider, "samples")
	for id, entity := range map[string]sampleEntity{"a": {Name: "alpha", Count: 2}, "b": {Name: "beta", Count: 5}} {
		ref, err := coll.Ref(ctx, id)
		if err != nil {
			t.Fatalf("ref: %v", err)
		}
		if _, err := ref.Create(ctx, entity); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	ref, _ := coll.Ref(ctx, "a")
	if _, err := ref.Create(ctx, sampleEntity{Name: "dup"}); !pfirestore.IsAlreadyExists(pfirestore.WrapError("create", err)) {
		t.Fatalf("expected already exists, got %v", err)
	}

	got, err := coll.Get(ctx, "a")
	if err != nil || got.Name != "alpha" {
		t.Fatalf("get: %+v %v", got, err)
	}

	if _, err := coll.Get(ctx, "missing"); err == nil {
		t.Fatalf("expected not found")
	} else {
		var fsErr *pfirestore.Error
		if !errors.As(err, &fsErr) || !fsErr.IsNotFound() {
			t.Fatalf("expected not found classification, got %v", err)
		}
	}

	total, err := coll.Count(ctx, nil)
	if err != nil || total != 2 {
		t.Fatalf("count: %d %v", total, err)
	}
	sum, err := coll.Sum(ctx, nil, "count")
	if err != nil || sum != 7 {
		t.Fatalf("sum: %d %v", sum, err)
	}

	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		entity, err := coll.GetTx(tx, ref)
		if err != nil {
			return err
		}
		entity.Count++
		return tx.Set(ref, entity)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if got, _ := coll.Get(ctx, "a"); got.Count != 3 {
		t.Fatalf("expected count 3 after transaction, got %d", got.Count)
	}

	sentinel := errors.New("abort")
	if err := provider.RunTransaction(ctx, func(context.Context, *firestore.Transaction) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected fn error to pass through, got %v", err)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if err := provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
