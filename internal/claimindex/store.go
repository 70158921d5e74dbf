// Package claimindex keeps a local index of submitted claims for the API, so listing
// claims does not depend on Temporal visibility.
package claimindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"claim-intake-service/internal/modal"
)

var ErrNotFound = errors.New("claim not found")

var claimsBucket = []byte("claims")

// Entry is the indexed summary of one claim run.
type Entry struct {
	WorkflowID  string      `json:"workflowId"`
	RunID       string      `json:"runId"`
	Submitter   modal.User  `json:"submitter"`
	Amount      float64     `json:"amount"`
	Images      int         `json:"images"`
	Stage       modal.Stage `json:"stage"`
	SubmittedAt time.Time   `json:"submittedAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open claim index %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(claimsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create claims bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(_ context.Context, e Entry) error {
	if e.WorkflowID == "" {
		return errors.New("claim entry needs a workflow id")
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.SubmittedAt
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode claim entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(claimsBucket).Put([]byte(e.WorkflowID), data)
	})
}

func (s *Store) Get(_ context.Context, workflowID string) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(claimsBucket).Get([]byte(workflowID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &e)
	})
	return e, err
}

// SetStage records the last observed stage of a claim.
func (s *Store) SetStage(_ context.Context, workflowID string, stage modal.Stage, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(claimsBucket)
		data := b.Get([]byte(workflowID))
		if data == nil {
			return ErrNotFound
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decode claim entry %s: %w", workflowID, err)
		}
		if e.Stage == stage {
			return nil
		}
		e.Stage = stage
		e.UpdatedAt = at
		out, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode claim entry: %w", err)
		}
		return b.Put([]byte(workflowID), out)
	})
}

// List returns every entry, most recently submitted first.
func (s *Store) List(_ context.Context) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(claimsBucket).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}
