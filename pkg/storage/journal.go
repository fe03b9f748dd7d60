package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/relatorhq/relator/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketReconcileRuns = []byte("reconcile_runs")
	bucketSessionRuns   = []byte("session_runs")
)

// Journal records reconcile runs and session runs in a local BoltDB file.
// It is an audit trail, not a source of truth: remote state is authoritative
// for resources, and sessions are never replayed from the journal.
type Journal struct {
	db *bolt.DB
}

// OpenJournal opens (or creates) the journal database under dataDir
func OpenJournal(dataDir string) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "relator.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketReconcileRuns, bucketSessionRuns} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// SaveReconcileRun stores or overwrites a reconcile run record
func (j *Journal) SaveReconcileRun(run *types.ReconcileRun) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReconcileRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return b.Put([]byte(run.ID), data)
	})
}

// GetReconcileRun fetches one reconcile run by ID
func (j *Journal) GetReconcileRun(id string) (*types.ReconcileRun, error) {
	var run types.ReconcileRun
	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketReconcileRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("reconcile run %s not found", id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListReconcileRuns returns all recorded reconcile runs
func (j *Journal) ListReconcileRuns() ([]*types.ReconcileRun, error) {
	var runs []*types.ReconcileRun
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReconcileRuns).ForEach(func(_, v []byte) error {
			var run types.ReconcileRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// SaveSessionRun stores or overwrites a session run record
func (j *Journal) SaveSessionRun(run *types.SessionRun) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionRuns)
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return b.Put([]byte(run.ID), data)
	})
}

// ListSessionRuns returns recorded session runs, optionally filtered by
// session ID (empty string means all)
func (j *Journal) ListSessionRuns(sessionID string) ([]*types.SessionRun, error) {
	var runs []*types.SessionRun
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessionRuns).ForEach(func(_, v []byte) error {
			var run types.SessionRun
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			if sessionID == "" || run.SessionID == sessionID {
				runs = append(runs, &run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
