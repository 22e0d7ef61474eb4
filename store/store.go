// Package store is the durable execution log (C14): one entry per
// ActionExecutor.Execute call and per completed rule firing, grounded
// on the ExecutionLogRepository collaborator named in the original
// action_executor.py and stored with go.etcd.io/bbolt, the embedded
// key/value store the teacher uses for crew state persistence
// (cmd/mservice/storage/bolt). A nil *Log is a legal "logging
// disabled" value: every method guards against a nil receiver, so
// wiring a Log into the engine/executor is always optional.
package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/graphrules/engine/actionexec"
	"github.com/graphrules/engine/engine"
)

var logBucket = []byte("execution_log")

// Entry is one record: an action execution or a rule firing outcome.
type Entry struct {
	Type     string    `json:"type"` // "action" or "rule"
	Name     string    `json:"name"`
	EntityID string    `json:"entity_id"`
	Actor    string    `json:"actor,omitempty"`
	Success  bool      `json:"success"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Log is a durable, append-only execution history backed by a single
// bbolt bucket keyed by an auto-incrementing sequence number.
type Log struct {
	db *bolt.DB
}

// Open creates (or opens) the bbolt file at path and ensures its
// bucket exists. Passing an empty path is the caller's signal that
// execution logging is disabled — callers should simply not call Open
// and instead pass a nil *Log wherever one is expected.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(logBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close releases the underlying bbolt file handle.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append records one entry. A nil *Log silently no-ops, matching
// SPEC_FULL.md §4.14's "entirely optional, never required" contract.
func (l *Log) Append(e Entry) error {
	if l == nil {
		return nil
	}
	js, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(logBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), js)
	})
}

// Recent returns up to n most recently appended entries, newest
// first. A nil *Log (or n <= 0) returns an empty slice.
func (l *Log) Recent(n int) ([]Entry, error) {
	if l == nil || n <= 0 {
		return nil, nil
	}
	var out []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(logBucket).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RuleMatched implements engine.Observer: a completed rule firing is
// logged as a successful rule entry.
func (l *Log) RuleMatched(rule string) {
	_ = l.Append(Entry{Type: "rule", Name: rule, Success: true, At: time.Now().UTC()})
}

// RuleFailed implements engine.Observer.
func (l *Log) RuleFailed(rule, entityType, entityID string, err error) {
	_ = l.Append(Entry{Type: "rule", Name: rule, EntityID: entityID, Success: false, Detail: err.Error(), At: time.Now().UTC()})
}

// Overflow implements engine.Observer as a no-op: an overflow drops a
// cascade branch, it is not a completed rule firing or action
// execution this log records.
func (l *Log) Overflow(o *engine.CascadeOverflow) {}

// CascadeFinished implements engine.Observer as a no-op.
func (l *Log) CascadeFinished(int) {}

// TranslateError implements engine.Observer as a no-op; the
// originating RuleFailed call already records the failure.
func (l *Log) TranslateError(string) {}

// EvalError implements engine.Observer as a no-op, for the same
// reason as TranslateError.
func (l *Log) EvalError(string) {}

// ActionExecuted implements actionexec.ExecObserver.
func (l *Log) ActionExecuted(entityType, action, outcome string) {
	_ = l.Append(Entry{Type: "action", Name: entityType + "." + action, Success: outcome == "success", At: time.Now().UTC()})
}

var (
	_ engine.Observer         = (*Log)(nil)
	_ actionexec.ExecObserver = (*Log)(nil)
)

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
