// Package pagination implements keyset paging over rows ordered by
// (created_at DESC, id DESC).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is a page request as received from a client.
type Params struct {
	Limit  int
	Cursor string
}

// Size is the page size after applying the default and the ceiling.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// After decodes the cursor. A blank cursor means the first page and yields nil.
func (p Params) After() (*Keyset, error) {
	raw := strings.TrimSpace(p.Cursor)
	if raw == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var k Keyset
	if err := json.Unmarshal(decoded, &k); err != nil {
		return nil, fmt.Errorf("cursor body: %w", err)
	}
	if k.ID == uuid.Nil || k.CreatedAt.IsZero() {
		return nil, errors.New("cursor is incomplete")
	}
	return &k, nil
}

// Keyset is the position of the last row a client has seen.
type Keyset struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Token renders k as an opaque, URL-safe cursor.
func (k Keyset) Token() string {
	body, _ := json.Marshal(Keyset{CreatedAt: k.CreatedAt.UTC(), ID: k.ID})
	return base64.RawURLEncoding.EncodeToString(body)
}

// Trim cuts rows fetched with a size+1 limit back to size and reports
// whether another page exists.
func Trim[T any](rows []T, size int) ([]T, bool) {
	if len(rows) <= size {
		return rows, false
	}
	return rows[:size], true
}
