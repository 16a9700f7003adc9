package importer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kpauljoseph/ankix/internal/remote"
)

const DefaultArtifactTTL = time.Hour

var ErrNotFound = errors.New("import file not found")

type Artifact struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Store keeps generated import files in memory behind random ids until
// they expire.
type Store struct {
	mu        sync.Mutex
	artifacts map[string]*Artifact
	ttl       time.Duration
	now       func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	return &Store{
		artifacts: make(map[string]*Artifact),
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *Store) Put(file *remote.ImportFile) *Artifact {
	artifact := &Artifact{
		ID:          uuid.NewString(),
		Name:        file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
		CreatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifact.ID] = artifact
	return artifact
}

func (s *Store) Get(id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact, ok := s.artifacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(artifact) {
		delete(s.artifacts, id)
		return nil, ErrNotFound
	}
	return artifact, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, id)
}

// Purge drops expired artifacts and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, artifact := range s.artifacts {
		if s.expired(artifact) {
			delete(s.artifacts, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}

func (s *Store) expired(a *Artifact) bool {
	return s.now().Sub(a.CreatedAt) >= s.ttl
}
