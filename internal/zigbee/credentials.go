package zigbee

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketNetwork  = []byte("network")
	keyCredentials = []byte("credentials")
)

// ErrNoCredentials is returned when no network has been joined.
var ErrNoCredentials = errors.New("zigbee: no network credentials")

// Credentials are the persisted parameters of the joined network.
type Credentials struct {
	Channel  uint8     `json:"channel"`
	PanID    uint16    `json:"pan_id"`
	ExtPanID [8]byte   `json:"ext_pan_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// CredentialStore persists Credentials in a bbolt database. A zero path keeps
// them in memory only.
type CredentialStore struct {
	db  *bolt.DB
	mem *Credentials
}

// OpenCredentialStore opens or creates the database at path.
func OpenCredentialStore(path string) (*CredentialStore, error) {
	if path == "" {
		return &CredentialStore{}, nil
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNetwork)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &CredentialStore{db: db}, nil
}

// Load returns the stored credentials or ErrNoCredentials.
func (s *CredentialStore) Load() (*Credentials, error) {
	if s.db == nil {
		if s.mem == nil {
			return nil, ErrNoCredentials
		}
		c := *s.mem
		return &c, nil
	}
	var c Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data := b.Get(keyCredentials)
		if data == nil {
			return ErrNoCredentials
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save replaces the stored credentials.
func (s *CredentialStore) Save(c Credentials) error {
	if s.db == nil {
		s.mem = &c
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return b.Put(keyCredentials, data)
	})
}

// Clear removes the stored credentials.
func (s *CredentialStore) Clear() error {
	if s.db == nil {
		s.mem = nil
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return nil
		}
		return b.Delete(keyCredentials)
	})
}

// Close releases the database.
func (s *CredentialStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
