// internal/audit/audit_test.go
package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
)

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []domain.QueryLogEntry
	fail    bool
}

func (f *fakeAuditStore) InsertQueryLog(_ context.Context, entry *domain.QueryLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) ListQueryLogs(context.Context, string, string, int) ([]domain.QueryLogEntry, error) {
	return nil, nil
}

func (f *fakeAuditStore) ClearQueryLogs(context.Context, string) (int64, error) {
	return 0, nil
}

type fakeKeyStore struct {
	mu      sync.Mutex
	touched []string
}

func (f *fakeKeyStore) Authenticate(context.Context, string) (*domain.KeyIdentity, error) {
	return nil, nil
}

func (f *fakeKeyStore) TouchLastUsed(_ context.Context, keyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, keyID)
	return nil
}

func (f *fakeKeyStore) CreateAPIKey(context.Context, string, string, string) (*domain.APIKey, error) {
	return nil, nil
}
func (f *fakeKeyStore) ListAPIKeys(context.Context, string) ([]domain.APIKey, error) {
	return nil, nil
}
func (f *fakeKeyStore) RegenerateAPIKey(context.Context, string, string) (*domain.APIKey, error) {
	return nil, nil
}
func (f *fakeKeyStore) SetAPIKeyActive(context.Context, string, string, bool) error { return nil }
func (f *fakeKeyStore) DeleteAPIKey(context.Context, string, string) error          { return nil }

func TestRecorderWritesInBackground(t *testing.T) {
	logs := &fakeAuditStore{}
	keys := &fakeKeyStore{}
	recorder := NewRecorder(logs, keys)

	for i := 0; i < 10; i++ {
		recorder.Record(&domain.QueryLogEntry{DatabaseID: "db-1", UserID: "u-1", Method: "select"})
	}
	recorder.TouchKey("key-1")
	recorder.Flush()

	logs.mu.Lock()
	defer logs.mu.Unlock()
	assert.Len(t, logs.entries, 10)

	keys.mu.Lock()
	defer keys.mu.Unlock()
	assert.Equal(t, []string{"key-1"}, keys.touched)
}

func TestRecorderSwallowsStoreFailures(t *testing.T) {
	logs := &fakeAuditStore{fail: true}
	recorder := NewRecorder(logs, &fakeKeyStore{})

	// Must not panic or block; the entry is simply dropped.
	recorder.Record(&domain.QueryLogEntry{DatabaseID: "db-1"})
	recorder.Flush()

	logs.mu.Lock()
	defer logs.mu.Unlock()
	assert.Empty(t, logs.entries)
}
