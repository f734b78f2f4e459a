package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nuages/nuages/internal/tagstore"
	"github.com/nuages/nuages/pkg/cloud"
)

// MemoryStore is an in-process TagStore. It backs the local preview server
// and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	info    tagstore.Collection
	weights map[string]float64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) ListCollections(ctx context.Context) ([]tagstore.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tagstore.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		info := c.info
		info.TagCount = len(c.weights)
		info.TotalWeight = 0
		for _, w := range c.weights {
			info.TotalWeight += w
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) AddWeights(ctx context.Context, collection string, tags []tagstore.TagWeight) (int, error) {
	return s.upsert(collection, tags, true)
}

func (s *MemoryStore) SetWeights(ctx context.Context, collection string, tags []tagstore.TagWeight) (int, error) {
	return s.upsert(collection, tags, false)
}

func (s *MemoryStore) upsert(collection string, tags []tagstore.TagWeight, add bool) (int, error) {
	merged, err := tagstore.MergeTags(tags, add)
	if err != nil {
		return 0, err
	}
	if len(merged) == 0 {
		return 0, nil
	}
	name := tagstore.NormalizeLabel(collection)
	if name == "" {
		return 0, fmt.Errorf("ensure collection: empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{
			info:    tagstore.Collection{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()},
			weights: make(map[string]float64),
		}
		s.collections[name] = c
	}
	next := make(map[string]float64, len(merged))
	for _, t := range merged {
		w := t.Weight
		if add {
			if w, err = tagstore.AddWeight(t.Label, c.weights[t.Label], t.Weight); err != nil {
				return 0, err
			}
		}
		next[t.Label] = w
	}
	for label, w := range next {
		c.weights[label] = w
	}
	return len(merged), nil
}

func (s *MemoryStore) ListTags(ctx context.Context, collection string) (cloud.Cloud, error) {
	name := tagstore.NormalizeLabel(collection)

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("list tags %s: %w", name, tagstore.ErrCollectionNotFound)
	}
	out := make(cloud.Cloud, 0, len(c.weights))
	for label, w := range c.weights {
		out = append(out, &cloud.Tag{Label: label, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	name := tagstore.NormalizeLabel(collection)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("delete collection %s: %w", name, tagstore.ErrCollectionNotFound)
	}
	delete(s.collections, name)
	return nil
}
