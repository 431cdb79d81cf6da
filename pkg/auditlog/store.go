// Package auditlog provides an append-only audit trail for payment
// reconciliation, stored in a local BoltDB file deliberately separate from
// the transactional database. Every raw provider callback and every terminal
// state transition is recorded here so reconciliation outcomes can be
// replayed and re-verified after the fact.
package auditlog

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const (
	callbackBucket   = "callbacks"
	transitionBucket = "transitions"
)

// CallbackRecord is one raw inbound provider payload.
type CallbackRecord struct {
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Transition is one terminal state change of a transaction.
type Transition struct {
	Reference string    `json:"reference"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Note      string    `json:"note,omitempty"`
	At        time.Time `json:"at"`
}

// Store is an append-only bolt-backed audit log.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the audit database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(callbackBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(transitionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendCallback records a raw callback payload. The payload is stored as
// received; even payloads that fail JSON validation downstream are kept.
func (s *Store) AppendCallback(payload []byte) error {
	rec := CallbackRecord{At: time.Now().UTC(), Payload: json.RawMessage(payload)}
	if !json.Valid(payload) {
		// Wrap non-JSON bodies so the record itself stays decodable.
		raw, err := json.Marshal(string(payload))
		if err != nil {
			return err
		}
		rec.Payload = raw
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.append(callbackBucket, data)
}

// AppendTransition records a terminal state change.
func (s *Store) AppendTransition(t Transition) error {
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.append(transitionBucket, data)
}

// ForEachCallback replays recorded callbacks in append order.
func (s *Store) ForEachCallback(fn func(rec CallbackRecord) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(callbackBucket)).ForEach(func(k, v []byte) error {
			var rec CallbackRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			return fn(rec)
		})
	})
}

// ForEachTransition replays recorded transitions in append order.
func (s *Store) ForEachTransition(fn func(t Transition) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(transitionBucket)).ForEach(func(k, v []byte) error {
			var t Transition
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			return fn(t)
		})
	})
}

// append writes a record under a monotonically increasing sequence key so
// iteration order matches append order.
func (s *Store) append(bucket string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}
