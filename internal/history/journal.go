// Package history persists a journal of executed disruptions so a test run
// can be reconstructed after the fact.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"cluster-nemesis/internal/nemesis"
)

// Entry is one journaled disruption.
type Entry struct {
	Action    string        `json:"action"`
	Target    string        `json:"target"`
	Start     time.Time     `json:"start"`
	Duration  time.Duration `json:"duration"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
}

// Journal is an append-only disruption log backed by badger. It implements
// nemesis.Sink.
type Journal struct {
	db *badger.DB
}

var _ nemesis.Sink = (*Journal)(nil)

type Config struct {
	DataPath string
	InMemory bool
}

func Open(config Config) (*Journal, error) {
	opts := badger.DefaultOptions(config.DataPath)
	if config.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil) // Disable badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record implements nemesis.Sink. Journal failures must never disturb the
// scheduling loop, so they are swallowed here; Append exists for callers
// that do want the error.
func (j *Journal) Record(event nemesis.Event) {
	_ = j.Append(event)
}

// Append writes one disruption event to the journal.
func (j *Journal) Append(event nemesis.Event) error {
	entry := Entry{
		Action:    event.Action,
		Target:    event.Target,
		Start:     event.Start,
		Duration:  event.Duration,
		Succeeded: event.Err == nil,
	}
	if event.Err != nil {
		entry.Error = event.Err.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := []byte(fmt.Sprintf("disruption/%020d", event.Start.UnixNano()))
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the end of the disruption keyspace.
		seek := []byte("disruption/~")
		for it.Seek(seek); it.Valid() && len(entries) < limit; it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history journal: %w", err)
	}

	return entries, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
