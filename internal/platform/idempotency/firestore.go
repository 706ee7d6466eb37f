package idempotency

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/storefront/api/internal/platform/firestore"
)

const firestoreCollection = "idempotencyKeys"

// FirestoreStore keeps keys in a Firestore collection. Begin runs in a transaction.
type FirestoreStore struct {
	provider *pfirestore.Provider
	keys     *pfirestore.Collection[firestoreRecord]
}

// NewFirestoreStore constructs a FirestoreStore on provider.
func NewFirestoreStore(provider *pfirestore.Provider) *FirestoreStore {
	return &FirestoreStore{
		provider: provider,
		keys:     pfirestore.NewCollection[firestoreRecord](provider, firestoreCollection),
	}
}

func (s *FirestoreStore) Begin(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Outcome, Record, error) {
	ref, err := s.keys.Ref(ctx, documentID(key))
	if err != nil {
		return 0, Record{}, err
	}

	var (
		outcome Outcome
		record  Record
	)
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := s.keys.GetTx(tx, ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err == nil && !doc.toRecord().Expired(now) {
			record = doc.toRecord()
			outcome, err = outcomeOf(record, fingerprint)
			return err
		}
		record = newInFlight(key, fingerprint, now, ttl)
		outcome = OutcomeAcquired
		return tx.Set(ref, fromRecord(record))
	})
	if err != nil {
		return 0, Record{}, err
	}
	return outcome, record, nil
}

func (s *FirestoreStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	ref, err := s.keys.Ref(ctx, documentID(key))
	if err != nil {
		return err
	}
	return s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing := newInFlight(key, fingerprint, now, ttl)
		doc, err := s.keys.GetTx(tx, ref)
		switch {
		case err == nil:
			existing = doc.toRecord()
			if existing.Fingerprint != fingerprint {
				return ErrFingerprintMismatch
			}
		case !isNotFound(err):
			return err
		}
		return tx.Set(ref, fromRecord(completed(existing, resp, now, ttl)))
	})
}

func (s *FirestoreStore) Abandon(ctx context.Context, key string) error {
	ref, err := s.keys.Ref(ctx, documentID(key))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && !isNotFound(pfirestore.WrapError("idempotency.abandon", err)) {
		return pfirestore.WrapError("idempotency.abandon", err)
	}
	return nil
}

func (s *FirestoreStore) Purge(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	docs, err := client.Collection(firestoreCollection).Where("expiresAt", "<=", now).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return 0, pfirestore.WrapError("idempotency.purge", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	bulk := client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := bulk.Delete(doc.Ref); err != nil {
			bulk.End()
			return 0, pfirestore.WrapError("idempotency.purge", err)
		}
	}
	bulk.End()
	return len(docs), nil
}

func isNotFound(err error) bool {
	var fsErr *pfirestore.Error
	return errors.As(err, &fsErr) && fsErr.IsNotFound()
}

type firestoreRecord struct {
	Key         string              `firestore:"key"`
	Fingerprint string              `firestore:"fingerprint"`
	State       string              `firestore:"state"`
	Status      int                 `firestore:"status"`
	Header      map[string][]string `firestore:"header"`
	Body        []byte              `firestore:"body"`
	CreatedAt   time.Time           `firestore:"createdAt"`
	ExpiresAt   time.Time           `firestore:"expiresAt"`
}

func fromRecord(r Record) firestoreRecord {
	return firestoreRecord{
		Key:         r.Key,
		Fingerprint: r.Fingerprint,
		State:       string(r.State),
		Status:      r.Status,
		Header:      r.Header,
		Body:        r.Body,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

func (r firestoreRecord) toRecord() Record {
	return Record{
		Key:         r.Key,
		Fingerprint: r.Fingerprint,
		State:       State(r.State),
		Status:      r.Status,
		Header:      r.Header,
		Body:        r.Body,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}
