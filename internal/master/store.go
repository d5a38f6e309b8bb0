package master

import (
	"errors"
	"sync"

	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/rs/zerolog"
)

type storeEntry struct {
	master *Master
	err    error
}

// Store loads masters from a config directory once per kind and keeps them.
// A missing master is remembered as well, so callers degrade without
// re-checking the filesystem on every request.
type Store struct {
	configDir string
	log       zerolog.Logger

	mu     sync.Mutex
	loaded map[statement.Kind]storeEntry
}

// NewStore creates a store reading from configDir.
func NewStore(configDir string, log zerolog.Logger) *Store {
	return &Store{
		configDir: configDir,
		log:       log,
		loaded:    make(map[statement.Kind]storeEntry),
	}
}

// Get returns the master for kind. The result is nil when the master file
// does not exist; other load errors are returned and not cached.
func (s *Store) Get(kind statement.Kind) (*Master, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.loaded[kind]; ok {
		return e.master, e.err
	}

	path := Path(s.configDir, kind)
	m, err := Load(path, kind)
	switch {
	case err == nil:
		s.log.Debug().Str("kind", string(kind)).Int("entries", len(m.entries)).Msg("Account master loaded")
		s.loaded[kind] = storeEntry{master: m}
	case errors.Is(err, ErrMasterNotFound):
		s.log.Info().Str("kind", string(kind)).Str("path", path).Msg("No account master, falling back to flat accounts")
		s.loaded[kind] = storeEntry{}
		return nil, nil
	default:
		return nil, err
	}
	return m, nil
}

// Invalidate forgets every loaded master.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loaded = make(map[statement.Kind]storeEntry)
	s.mu.Unlock()
}
