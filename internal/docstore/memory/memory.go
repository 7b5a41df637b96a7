package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokobuku/backend/internal/docstore"
)

// Store is an in-memory document store used for development and tests. It
// honors the same contract as the postgres store: assigned ids, updated_at
// stamping on Update, and all-or-nothing batch increments.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
	}
}

func (s *Store) ListCollection(_ context.Context, name string, orderBy string, descending bool) ([]docstore.Record, error) {
	if name == "" {
		return nil, docstore.ErrInvalidCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[name]
	records := make([]docstore.Record, 0, len(docs))
	for id, data := range docs {
		records = append(records, docstore.Record{ID: id, Data: cloneData(data)})
	}

	if orderBy != "" {
		slices.SortStableFunc(records, func(a, b docstore.Record) int {
			cmp := compareField(a.Data[orderBy], b.Data[orderBy])
			if cmp == 0 {
				cmp = cmpString(a.ID, b.ID)
			}
			if descending {
				return -cmp
			}
			return cmp
		})
	} else {
		slices.SortStableFunc(records, func(a, b docstore.Record) int {
			return cmpString(a.ID, b.ID)
		})
	}

	return records, nil
}

func (s *Store) GetOne(_ context.Context, name string, id string) (*docstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[name][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return &docstore.Record{ID: id, Data: cloneData(data)}, nil
}

func (s *Store) Insert(_ context.Context, name string, data map[string]any) (*docstore.Record, error) {
	if name == "" {
		return nil, docstore.ErrInvalidCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]map[string]any)
	}

	id := uuid.NewString()
	s.collections[name][id] = cloneData(data)
	return &docstore.Record{ID: id, Data: cloneData(data)}, nil
}

func (s *Store) Update(_ context.Context, name string, id string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.collections[name][id]
	if !ok {
		return docstore.ErrNotFound
	}
	for key, value := range cloneData(partial) {
		data[key] = value
	}
	data["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (s *Store) Remove(_ context.Context, name string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name][id]; !ok {
		return docstore.ErrNotFound
	}
	delete(s.collections[name], id)
	return nil
}

func (s *Store) BatchIncrement(_ context.Context, name string, field string, deltas map[string]int64) error {
	if len(deltas) == 0 {
		return nil
	}
	if field == "" {
		return docstore.ErrInvalidField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[name]

	// Validate the full batch before touching anything, so a bad id leaves
	// every document untouched.
	for id := range deltas {
		data, ok := docs[id]
		if !ok {
			return fmt.Errorf("batch increment %s/%s: %w", name, id, docstore.ErrNotFound)
		}
		if current, exists := data[field]; exists {
			if _, ok := current.(float64); !ok {
				return fmt.Errorf("batch increment %s/%s: field %q is not numeric", name, id, field)
			}
		}
	}

	for id, delta := range deltas {
		current, _ := docs[id][field].(float64)
		docs[id][field] = current + float64(delta)
	}
	return nil
}

// cloneData deep-copies a document body through a JSON round trip, matching
// how documents enter and leave the store.
func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		dup := make(map[string]any, len(data))
		for k, v := range data {
			dup[k] = v
		}
		return dup
	}
	clone := make(map[string]any, len(data))
	if err := json.Unmarshal(raw, &clone); err != nil {
		dup := make(map[string]any, len(data))
		for k, v := range data {
			dup[k] = v
		}
		return dup
	}
	return clone
}

func compareField(a any, b any) int {
	aNum, aIsNum := a.(float64)
	bNum, bIsNum := b.(float64)
	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	aStr, _ := a.(string)
	bStr, _ := b.(string)
	return cmpString(aStr, bStr)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
