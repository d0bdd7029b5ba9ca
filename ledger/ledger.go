// Package ledger keeps the history of generated artifacts and failed
// generations in a pebble database under the data directory.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	pebble "github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"slidepack/models"
)

const (
	artifactPrefix = "artifact/"
	failurePrefix  = "failure/"
	healthKey      = "__health_check__"
)

// Ledger is safe for concurrent use.
type Ledger struct {
	db  *pebble.DB
	now func() time.Time

	// serializes read-modify-write of artifact records
	mu sync.Mutex
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func artifactKey(filename string) []byte {
	return []byte(artifactPrefix + filename)
}

func (l *Ledger) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return l.db.Set(key, data, pebble.Sync)
}

// PutArtifact records a freshly assembled artifact in the created state.
func (l *Ledger) PutArtifact(art *models.Artifact, title string) (*models.ArtifactRecord, error) {
	rec := &models.ArtifactRecord{
		Filename:   art.Filename,
		Format:     art.Format,
		Title:      title,
		SlideCount: art.SlideCount,
		Size:       art.Size,
		State:      models.ArtifactCreated,
		CreatedAt:  l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.put(artifactKey(art.Filename), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetArtifact returns nil, nil when no record exists.
func (l *Ledger) GetArtifact(filename string) (*models.ArtifactRecord, error) {
	data, closer, err := l.db.Get(artifactKey(filename))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	defer closer.Close()

	var rec models.ArtifactRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact record: %w", err)
	}
	return &rec, nil
}

// MarkServed moves an artifact to the served state. first is true only for
// the call that made the transition. Unknown files get a new served record.
func (l *Ledger) MarkServed(filename string) (rec *models.ArtifactRecord, first bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err = l.GetArtifact(filename)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		rec = &models.ArtifactRecord{Filename: filename, CreatedAt: l.now(), State: models.ArtifactCreated}
	}
	if rec.State != models.ArtifactCreated {
		return rec, false, nil
	}

	now := l.now()
	rec.State = models.ArtifactServed
	rec.ServedAt = &now
	if err := l.put(artifactKey(filename), rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// MarkDeleted records that the artifact file is gone. Unknown files are ignored.
func (l *Ledger) MarkDeleted(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.GetArtifact(filename)
	if err != nil || rec == nil || rec.State == models.ArtifactDeleted {
		return err
	}
	now := l.now()
	rec.State = models.ArtifactDeleted
	rec.DeletedAt = &now
	return l.put(artifactKey(filename), rec)
}

// ListArtifacts returns every artifact record, newest first.
func (l *Ledger) ListArtifacts() ([]models.ArtifactRecord, error) {
	var records []models.ArtifactRecord
	err := l.scan(artifactPrefix, func(value []byte) {
		var rec models.ArtifactRecord
		if json.Unmarshal(value, &rec) == nil {
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

// ListLive returns artifacts whose file has not been deleted yet.
func (l *Ledger) ListLive() ([]models.ArtifactRecord, error) {
	all, err := l.ListArtifacts()
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, rec := range all {
		if rec.State != models.ArtifactDeleted {
			live = append(live, rec)
		}
	}
	return live, nil
}

// StoreFailure records a failed generation. request is marshalled to JSON.
func (l *Ledger) StoreFailure(cause error, request any) (*models.FailureRecord, error) {
	reqJSON, jsonErr := json.Marshal(request)
	if jsonErr != nil {
		reqJSON = []byte(fmt.Sprintf("failed to marshal request: %v", jsonErr))
	}

	rec := &models.FailureRecord{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Error:     cause.Error(),
		Request:   string(reqJSON),
	}
	if err := l.put([]byte(failurePrefix+rec.ID), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListFailures returns every failure record, newest first.
func (l *Ledger) ListFailures() ([]models.FailureRecord, error) {
	var records []models.FailureRecord
	err := l.scan(failurePrefix, func(value []byte) {
		var rec models.FailureRecord
		if json.Unmarshal(value, &rec) == nil {
			records = append(records, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.After(records[j].Timestamp) })
	return records, nil
}

// CleanupOldRecords removes deleted artifacts and failures older than maxAge.
// Live artifact records are kept regardless of age.
func (l *Ledger) CleanupOldRecords(maxAge time.Duration) (int, error) {
	cutoff := l.now().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	var stale [][]byte
	collect := func(prefix string, old func([]byte) bool) error {
		iter, err := l.db.NewIter(prefixOptions(prefix))
		if err != nil {
			return err
		}
		defer iter.Close()
		for iter.First(); iter.Valid(); iter.Next() {
			if old(iter.Value()) {
				key := make([]byte, len(iter.Key()))
				copy(key, iter.Key())
				stale = append(stale, key)
			}
		}
		return iter.Error()
	}

	err := collect(artifactPrefix, func(v []byte) bool {
		var rec models.ArtifactRecord
		if json.Unmarshal(v, &rec) != nil {
			return true
		}
		return rec.State == models.ArtifactDeleted && rec.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}
	err = collect(failurePrefix, func(v []byte) bool {
		var rec models.FailureRecord
		if json.Unmarshal(v, &rec) != nil {
			return true
		}
		return rec.Timestamp.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}

	batch := l.db.NewBatch()
	defer batch.Close()
	for _, key := range stale {
		if err := batch.Delete(key, nil); err != nil {
			return 0, err
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	return len(stale), nil
}

// CheckHealth verifies the database answers reads.
func (l *Ledger) CheckHealth() error {
	if l == nil || l.db == nil {
		return fmt.Errorf("ledger not initialized")
	}
	_, closer, err := l.db.Get([]byte(healthKey))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}

func (l *Ledger) scan(prefix string, fn func(value []byte)) error {
	iter, err := l.db.NewIter(prefixOptions(prefix))
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		fn(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iteration error: %w", err)
	}
	return nil
}

// prefixOptions bounds an iterator to keys starting with prefix.
func prefixOptions(prefix string) *pebble.IterOptions {
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{LowerBound: []byte(prefix), UpperBound: upper}
}
