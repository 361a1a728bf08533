package store

import "fmt"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	owner_id   TEXT NOT NULL DEFAULT '',
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS artifacts_owner_idx ON artifacts (owner_id, updated_at DESC);
`

func (s *Store) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(schemaSQL)
	})
	return s.schemaErr
}

func (s *Store) getDB(id string) (Record, bool) {
	if s.cache != nil {
		if r, ok := s.cache.Get(id); ok {
			return r, true
		}
	}
	if err := s.ensureSchema(); err != nil {
		return Record{}, false
	}
	var r Record
	row := s.db.QueryRow(`SELECT id, kind, owner_id, payload, created_at, updated_at FROM artifacts WHERE id = $1`, id)
	if err := row.Scan(&r.ID, &r.Kind, &r.OwnerID, &r.Payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Record{}, false
	}
	if s.cache != nil {
		s.cache.Add(id, r)
	}
	return r, true
}

func (s *Store) putDB(rec Record) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO artifacts (id, kind, owner_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			owner_id = EXCLUDED.owner_id,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Kind, rec.OwnerID, []byte(rec.Payload), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", rec.ID, err)
	}
	if s.cache != nil {
		s.cache.Add(rec.ID, rec)
	}
	return nil
}

func (s *Store) listDB(ownerID string) ([]Record, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, kind, owner_id, payload, created_at, updated_at
		FROM artifacts WHERE ($1 = '' OR owner_id = $1) ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Kind, &r.OwnerID, &r.Payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) deleteDB(id string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM artifacts WHERE id = $1`, id)
	return err
}
