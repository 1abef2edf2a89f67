package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned when a document does not exist
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore is a keyed JSON document store organised in named collections
type DocumentStore interface {
	// Get decodes the document into dest
	Get(ctx context.Context, collection, id string, dest interface{}) error
	// Set writes a whole document, creating it when absent
	Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error
	// Update merges fields into an existing document
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

// SetOptions controls how Set treats an existing document
type SetOptions struct {
	// Merge keeps fields of the stored document that doc does not mention
	Merge bool
	// Preserve lists fields whose stored value wins over doc when the document exists
	Preserve []string
}

// SetOption configures a Set call
type SetOption func(*SetOptions)

// WithMerge merges the written fields into the stored document
func WithMerge() SetOption {
	return func(o *SetOptions) { o.Merge = true }
}

// WithPreserve keeps the stored values of fields on conflict
func WithPreserve(fields ...string) SetOption {
	return func(o *SetOptions) { o.Preserve = append(o.Preserve, fields...) }
}

func buildSetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// toFields converts any JSON-encodable value into a document field map
func toFields(doc interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("document must encode to a JSON object: %w", err)
	}
	return out, nil
}

// applySet computes the stored document after a Set on top of existing (nil when absent)
func applySet(existing, incoming map[string]interface{}, o SetOptions) map[string]interface{} {
	result := make(map[string]interface{}, len(incoming))
	if existing != nil && o.Merge {
		for k, v := range existing {
			result[k] = v
		}
	}
	for k, v := range incoming {
		result[k] = v
	}
	if existing != nil {
		for _, field := range o.Preserve {
			if v, ok := existing[field]; ok {
				result[field] = v
			}
		}
	}
	return result
}
