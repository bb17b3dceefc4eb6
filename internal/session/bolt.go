package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sakif/todo-list/internal/model"
)

var bucketSessions = []byte("sessions")

// BoltStore persists sessions in a bbolt file, one JSON value per token.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: opening bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: creating sessions bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Put(_ context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encoding session: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(sess.Token), data)
	})
}

func (s *BoltStore) Get(_ context.Context, token string) (*model.Session, error) {
	var sess *model.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(token))
		if data == nil {
			return nil
		}
		sess = &model.Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("session: reading session: %w", err)
	}
	return sess, nil
}

func (s *BoltStore) Delete(_ context.Context, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(token))
	})
}

func (s *BoltStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)

		// Collect first: deleting while iterating with ForEach is not allowed.
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess model.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				// Unreadable entries can never resolve to a user; drop them.
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if sess.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = int64(len(expired))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session: deleting expired sessions: %w", err)
	}
	return n, nil
}
