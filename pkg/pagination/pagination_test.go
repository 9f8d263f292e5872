package pagination

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.Size())
	assert.Equal(t, DefaultLimit, Params{Limit: -3}.Size())
	assert.Equal(t, 10, Params{Limit: 10}.Size())
	assert.Equal(t, MaxLimit, Params{Limit: MaxLimit + 50}.Size())
}

func TestKeysetTokenRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.FixedZone("CET", 3600))
	id := uuid.New()

	token := Keyset{CreatedAt: at, ID: id}.Token()
	assert.Equal(t, token, url.QueryEscape(token), "cursor must survive a query string unescaped")

	k, err := Params{Cursor: token}.After()
	require.NoError(t, err)
	require.NotNil(t, k)
	assert.True(t, k.CreatedAt.Equal(at))
	assert.Equal(t, id, k.ID)
}

func TestAfterBlankCursor(t *testing.T) {
	k, err := Params{Cursor: "   "}.After()
	require.NoError(t, err)
	assert.Nil(t, k)
}

func TestAfterRejectsGarbage(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	for _, cursor := range []string{
		"%%%",
		enc("not json"),
		enc(`{"t":"2026-01-01T00:00:00Z"}`),
		enc(`{"id":"` + uuid.NewString() + `"}`),
		enc(`{"t":"yesterday","id":"` + uuid.NewString() + `"}`),
	} {
		_, err := Params{Cursor: cursor}.After()
		assert.Error(t, err, cursor)
	}
}

func TestTrim(t *testing.T) {
	rows, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, rows)
	assert.True(t, more)

	rows, more = Trim([]int{1, 2}, 2)
	assert.Equal(t, []int{1, 2}, rows)
	assert.False(t, more)
}
