// Package store persists generated artifacts (blueprints, media plans).
// Backends: Postgres via the pgx stdlib driver when a DSN is configured,
// otherwise a JSON file. Reads go through an LRU cache.
package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Record is one persisted artifact.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"` // "blueprint" | "mediaplan"
	OwnerID   string          `json:"ownerId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]Record

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, Record]
}

// New returns a file-backed store.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Record),
	}
}

// NewPostgres returns a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, Record](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// NewFromEnv prefers Postgres when ARTIFACT_STORE_PG_DSN is set, falling
// back to the file backend.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("ARTIFACT_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Get(id string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	if s.db != nil {
		return s.getDB(id)
	}
	return s.getFile(id)
}

func (s *Store) Put(rec Record) error {
	if s == nil || rec.ID == "" {
		return nil
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if s.db != nil {
		return s.putDB(rec)
	}
	return s.putFile(rec)
}

func (s *Store) ListByOwner(ownerID string) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	if s.db != nil {
		return s.listDB(ownerID)
	}
	return s.listFile(ownerID), nil
}

func (s *Store) Delete(id string) error {
	if s == nil {
		return nil
	}
	if s.cache != nil {
		s.cache.Remove(id)
	}
	if s.db != nil {
		return s.deleteDB(id)
	}
	s.deleteFile(id)
	return nil
}

func (s *Store) Close() error {
	if s != nil && s.db != nil {
		return s.db.Close()
	}
	return nil
}
