// internal/audit/audit.go
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/logger"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// writeTimeout bounds each background write so a stuck store cannot pile up
// goroutines forever.
const writeTimeout = 5 * time.Second

// Recorder writes audit entries and key-usage stamps in the background.
// Neither path ever blocks or fails the primary response: errors are
// swallowed and surfaced only through server-side logs.
type Recorder struct {
	logs storage.AuditStore
	keys storage.KeyStore
	wg   sync.WaitGroup
}

// NewRecorder creates a Recorder on top of the given stores.
func NewRecorder(logs storage.AuditStore, keys storage.KeyStore) *Recorder {
	return &Recorder{logs: logs, keys: keys}
}

// Record persists one query log entry asynchronously, fire-and-forget.
func (r *Recorder) Record(entry *domain.QueryLogEntry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.logs.InsertQueryLog(ctx, entry); err != nil {
			customLog.Warnf("Audit: dropped query log entry for DB %s: %v", entry.DatabaseID, err)
		}
	}()
}

// TouchKey stamps last_used_at for a key asynchronously after an action
// completes.
func (r *Recorder) TouchKey(keyID string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.keys.TouchLastUsed(ctx, keyID); err != nil {
			customLog.Warnf("Audit: failed to stamp last_used_at for key %s: %v", keyID, err)
		}
	}()
}

// Flush blocks until all in-flight background writes have finished. Used at
// shutdown and by tests; the request path never calls it.
func (r *Recorder) Flush() {
	r.wg.Wait()
}
