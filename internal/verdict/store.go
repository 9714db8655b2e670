package verdict

import (
	"sync"

	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"

	"go.uber.org/zap"
)

// Repository is the durable copy of the verdict mapping.
//
// Load returns the full mapping. Save replaces the durable copy with the given
// mapping and must not corrupt the previous copy if interrupted.
type Repository interface {
	Load() (map[string]Verdict, error)
	Save(map[string]Verdict) error
}

// Store is the in-memory verdict mapping of one review session.
//
// Thread-safety:
//   - All operations are protected by mutex
//   - The HTTP adapter shares a store between handler goroutines
type Store struct {
	mu       sync.Mutex
	verdicts map[string]Verdict // complaint number → verdict
}

// NewStore creates a store seeded with a copy of initial.
func NewStore(initial map[string]Verdict) *Store {
	s := &Store{verdicts: make(map[string]Verdict, len(initial))}
	for id, v := range initial {
		s.verdicts[id] = v.Normalize()
	}
	return s
}

// Open loads the durable mapping from repo.
//
// A load failure is not fatal: it is logged as a PersistenceError and the
// session starts from an empty mapping.
func Open(repo Repository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	loaded, err := repo.Load()
	if err != nil {
		logger.Warn("⚠️  Verdict store unreadable, starting empty",
			zap.Error(qcerrors.NewPersistenceError("load", "", err)))
		return NewStore(nil)
	}

	logger.Info("📚 Loaded verdicts from storage", zap.Int("count", len(loaded)))
	return NewStore(loaded)
}

// Get returns the verdict for id, or a Pending verdict when none exists.
func (s *Store) Get(id string) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdicts[id]
}

// Set normalizes v and overwrites any previous verdict for id.
func (s *Store) Set(id string, v Verdict) Verdict {
	v = v.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[id] = v
	return v
}

// Touch writes the current (possibly default) verdict for id back into the
// mapping, so records a reviewer has seen appear in the durable copy.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verdicts[id]; !ok {
		s.verdicts[id] = Verdict{}
	}
}

// Len returns the number of stored verdicts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.verdicts)
}

// Snapshot returns a copy of the mapping.
func (s *Store) Snapshot() map[string]Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Verdict, len(s.verdicts))
	for id, v := range s.verdicts {
		out[id] = v
	}
	return out
}

// Flush persists the whole mapping through repo.
//
// On failure the in-memory mapping is kept so the save can be retried.
func (s *Store) Flush(repo Repository) error {
	if err := repo.Save(s.Snapshot()); err != nil {
		if qcerrors.IsPersistence(err) {
			return err
		}
		return qcerrors.NewPersistenceError("save", "", err)
	}
	return nil
}
