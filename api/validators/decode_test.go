package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type statusBody struct {
	Status string `json:"status" validate:"required,order_status"`
	Method string `json:"method" validate:"omitempty,payment_method"`
	Note   string `json:"note" validate:"omitempty,max=5"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsKnownValues(t *testing.T) {
	var got statusBody
	require.NoError(t, DecodeJSONBody(post(`{"status":"shipped","method":"card"}`), &got))
	assert.Equal(t, "shipped", got.Status)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"unknown field":  `{"status":"SHIPPED","extra":1}`,
		"trailing data":  `{"status":"SHIPPED"}{"status":"SHIPPED"}`,
		"unknown status": `{"status":"LOST"}`,
		"unknown method": `{"status":"SHIPPED","method":"cheque"}`,
		"too long":       `{"status":"SHIPPED","note":"abcdefg"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var got statusBody
			err := DecodeJSONBody(post(body), &got)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyNamesFieldsByJSONTag(t *testing.T) {
	var got statusBody
	err := DecodeJSONBody(post(`{"status":"LOST"}`), &got)

	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is not a known order status", details["status"])
}

func TestQueryInt(t *testing.T) {
	bounds := IntRange{Default: 25, Min: 1, Max: 100}

	n, err := QueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", bounds)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=7", nil), "limit", bounds)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, raw := range []string{"0", "101", "ten"} {
		_, err := QueryInt(httptest.NewRequest(http.MethodGet, "/?limit="+raw, nil), "limit", bounds)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), raw)
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", Clip("  abc  ", 0))
	assert.Equal(t, "ab", Clip("abc", 2))
	assert.Equal(t, "żó", Clip("żółw", 2), "cuts on rune boundaries")
}
