package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		if s.path == "" {
			return
		}
		b, err := os.ReadFile(s.path)
		if err != nil {
			return // missing file is an empty store
		}
		var recs []Record
		if err := json.Unmarshal(b, &recs); err != nil {
			return
		}
		s.mu.Lock()
		for _, r := range recs {
			s.byID[r.ID] = r
		}
		s.mu.Unlock()
	})
}

func (s *Store) saveFile() {
	if s.path == "" {
		return
	}
	s.mu.RLock()
	recs := make([]Record, 0, len(s.byID))
	for _, r := range s.byID {
		recs = append(recs, r)
	}
	s.mu.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}

func (s *Store) getFile(id string) (Record, bool) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

func (s *Store) putFile(rec Record) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.byID[rec.ID] = rec
	s.mu.Unlock()
	s.saveFile()
	return nil
}

func (s *Store) listFile(ownerID string) []Record {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.byID {
		if ownerID == "" || r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (s *Store) deleteFile(id string) {
	s.ensureLoadedFile()
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
	s.saveFile()
}
