package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidCollection = errors.New("invalid collection name")
	ErrInvalidField      = errors.New("invalid field name")
)

// Record is one document: an opaque key/value body plus the store-assigned
// identifier. The id never lives inside Data.
type Record struct {
	ID   string
	Data map[string]any
}

// Client is the access contract the core needs from the backing document
// store. Update must stamp an updated_at field on the document, and
// BatchIncrement must apply the whole delta map atomically or not at all.
type Client interface {
	ListCollection(ctx context.Context, name string, orderBy string, descending bool) ([]Record, error)
	GetOne(ctx context.Context, name string, id string) (*Record, error)
	Insert(ctx context.Context, name string, data map[string]any) (*Record, error)
	Update(ctx context.Context, name string, id string, partial map[string]any) error
	Remove(ctx context.Context, name string, id string) error
	BatchIncrement(ctx context.Context, name string, field string, deltas map[string]int64) error
}

// Encode converts a domain value into a document body via a JSON round trip.
// The id field is stripped so it never shadows the store-assigned identifier.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	delete(data, "id")
	return data, nil
}

// Decode unmarshals the record body into v and injects the record id, so a
// domain struct with an `id` JSON tag comes out fully populated.
func (r Record) Decode(v any) error {
	data := make(map[string]any, len(r.Data)+1)
	for k, val := range r.Data {
		data[k] = val
	}
	data["id"] = r.ID
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
