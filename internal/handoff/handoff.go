// Package handoff carries a pending voice command across a page navigation.
//
// When a command cannot finish on the current page (for example "add my
// truck" spoken on the dashboard), the dialogue controller saves the intent
// and its entities under the client's session key, navigates, and takes the
// slot back once the destination page reports it has loaded. Take is
// read-once: the slot is cleared by the same operation that returns it, so a
// payload can be applied at most once even if applying it fails halfway.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/entities"
)

// ErrEmpty is returned by [Store.Take] when no hand-off is pending.
var ErrEmpty = errors.New("handoff: slot is empty")

// Store is a read-once key/value slot keyed by client session.
type Store interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Take returns and deletes the value under key in one step. It returns
	// ErrEmpty when nothing is stored or the value has expired.
	Take(ctx context.Context, key string) ([]byte, error)

	// Close releases resources held by the store.
	Close() error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Payload is the serialized form of a pending command.
type Payload struct {
	Intent    catalog.Intent `json:"intent"`
	Entities  entities.Bag   `json:"entities"`
	CreatedAt time.Time      `json:"created_at"`
}

// Encode serializes p.
func Encode(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("handoff: encode: %w", err)
	}
	return data, nil
}

// Decode parses a stored payload and rejects unknown intents.
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("handoff: decode: %w", err)
	}
	if !p.Intent.IsValid() {
		return Payload{}, fmt.Errorf("handoff: decode: unknown intent %q", p.Intent)
	}
	return p, nil
}
