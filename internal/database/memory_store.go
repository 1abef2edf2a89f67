package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process DocumentStore for local development
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
}

// NewMemoryStore creates an empty in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

// Get decodes a stored document into dest
func (s *MemoryStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	s.mu.RLock()
	doc, ok := s.collections[collection][id]
	var raw []byte
	var err error
	if ok {
		raw, err = json.Marshal(doc)
	}
	s.mu.RUnlock()

	if !ok {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(raw, dest)
}

// Set writes a document using the same merge and preserve rules as PostgresStore
func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error {
	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	o := buildSetOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]interface{})
		s.collections[collection] = docs
	}
	docs[id] = applySet(docs[id], fields, o)
	return nil
}

// Update merges fields into an existing document
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	normalised, err := toFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrDocumentNotFound
	}
	for k, v := range normalised {
		existing[k] = v
	}
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Count returns the number of documents in a collection
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
