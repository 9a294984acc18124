// Package idempotency stores the responses of mutating HTTP requests so a
// retried request with the same Idempotency-Key replays the first response
// instead of applying the leave operation twice.
//
// Entries live in a BoltDB file, keyed by "{method} {path} {key}". Each entry
// keeps the SHA-256 of the request body: a retry with a different body is a
// conflict, never a replay. A key is reserved before its request runs, so a
// concurrent retry sees the reservation and is refused.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

var (
	// ErrConflict is returned when a key is reused with a different request.
	ErrConflict = errors.New("idempotency key conflicts with existing request")
	// ErrInFlight is returned when the request holding a key has not finished.
	ErrInFlight = errors.New("idempotency key is in use by a request in progress")
)

// Entry is a stored response, or a reservation while Pending.
type Entry struct {
	RequestHash string          `json:"request_hash"`
	Pending     bool            `json:"pending,omitempty"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the BoltDB file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RequestHash fingerprints a request body.
func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Check looks up key without reserving it. It returns the entry when the
// request hash matches, (nil, nil) when the key is unknown and ErrConflict
// otherwise.
func (s *Store) Check(key, requestHash string) (*Entry, error) {
	if s == nil {
		return nil, nil
	}
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		e, err := get(tx.Bucket([]byte(bucketName)), key)
		if err != nil || e == nil {
			return err
		}
		if e.RequestHash != requestHash {
			return ErrConflict
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Reserve claims key for a request in a single write transaction. It
// returns (nil, nil) when the caller now holds the key, the stored response
// when the request already completed, ErrInFlight while another request
// holds it and ErrConflict when the key belongs to a different request.
func (s *Store) Reserve(key, requestHash string) (*Entry, error) {
	if s == nil {
		return nil, nil
	}
	var entry *Entry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		e, err := get(b, key)
		if err != nil {
			return err
		}
		switch {
		case e == nil:
			return put(b, key, Entry{RequestHash: requestHash, Pending: true, CreatedAt: time.Now().UTC()})
		case e.RequestHash != requestHash:
			return ErrConflict
		case e.Pending:
			return ErrInFlight
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Save stores the response for key, replacing its reservation. A completed
// entry is kept as is; one for a different request is a conflict.
func (s *Store) Save(key string, entry Entry) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		e, err := get(b, key)
		if err != nil {
			return err
		}
		if e != nil {
			if e.RequestHash != entry.RequestHash {
				return ErrConflict
			}
			if !e.Pending {
				return nil
			}
		}

		entry.Pending = false
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		return put(b, key, entry)
	})
}

// Release drops the reservation on key so the request can be retried.
// Completed entries are left alone.
func (s *Store) Release(key string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		e, err := get(b, key)
		if err != nil || e == nil || !e.Pending {
			return err
		}
		return b.Delete([]byte(key))
	})
}

func get(b *bolt.Bucket, key string) (*Entry, error) {
	v := b.Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	var e Entry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func put(b *bolt.Bucket, key string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

// Purge removes entries older than maxAge and returns how many were removed.
// Reservations left behind by a crashed request go with them.
func (s *Store) Purge(maxAge time.Duration) (int, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
