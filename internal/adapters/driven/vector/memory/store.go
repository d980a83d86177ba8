// Package memory provides an in-memory vector store using
// brute-force cosine similarity. Collections are lazily materialized
// and each collection's dimension is pinned by its first insert.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/bindery-cli/internal/core/domain"
	"github.com/custodia-labs/bindery-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store holds named collections of vector records.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type record struct {
	vector []float32
	meta   driven.VectorMetadata
}

type collection struct {
	dimension int
	// order preserves insertion order so equal-score ties rank
	// first-inserted first.
	order   []string
	records map[string]record
}

// NewStore creates an empty vector store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// lookup returns the named collection, creating it if needed.
// Caller must hold the write lock.
func (s *Store) lookup(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{records: make(map[string]record)}
		s.collections[name] = c
	}
	return c
}

// Add inserts or replaces the record for id. The first insert into an
// empty collection fixes its dimension.
func (s *Store) Add(_ context.Context, name, id string, vector []float32, meta driven.VectorMetadata) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for %s: %w", id, domain.ErrDimensionMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookup(name)
	if c.dimension == 0 {
		c.dimension = len(vector)
	} else if len(vector) != c.dimension {
		return fmt.Errorf("vector for %s has %d dimensions, collection %s expects %d: %w",
			id, len(vector), name, c.dimension, domain.ErrDimensionMismatch)
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)

	if _, exists := c.records[id]; !exists {
		c.order = append(c.order, id)
	}
	c.records[id] = record{vector: stored, meta: meta}
	return nil
}

// Remove deletes the record for id, reporting whether it existed.
func (s *Store) Remove(_ context.Context, name, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookup(name)
	if _, ok := c.records[id]; !ok {
		return false, nil
	}
	delete(c.records, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Search returns up to topK records ordered by descending cosine
// similarity to query.
func (s *Store) Search(_ context.Context, name string, query []float32, topK int) ([]driven.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookup(name)
	if len(c.records) == 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != c.dimension {
		return nil, fmt.Errorf("query has %d dimensions, collection %s expects %d: %w",
			len(query), name, c.dimension, domain.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, 0, len(c.records))
	for _, id := range c.order {
		rec := c.records[id]
		hits = append(hits, driven.VectorHit{
			ChunkID:  id,
			Score:    cosine(query, rec.vector),
			Metadata: rec.meta,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Size returns the number of records in the collection.
func (s *Store) Size(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lookup(name).records), nil
}

// Clear removes all records from the collection but keeps its pinned
// dimension.
func (s *Store) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookup(name)
	c.order = nil
	c.records = make(map[string]record)
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// cosine computes cosine similarity in [-1, 1]. A zero-norm vector
// scores 0 against everything.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
