package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestAddressValueScanRoundTrip(t *testing.T) {
	addr := Address{Street: "Hauptstr. 1", City: "Berlin", PostalCode: "10115", Country: "DE"}

	value, err := addr.Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan([]byte(value.(string))))
	assert.Equal(t, addr, decoded)

	var fromString Address
	require.NoError(t, fromString.Scan(value))
	assert.Equal(t, addr, fromString)
}

func TestAddressScanNil(t *testing.T) {
	addr := Address{Street: "x"}
	require.NoError(t, addr.Scan(nil))
	assert.Equal(t, Address{}, addr)
	assert.Error(t, addr.Scan(42))
}

func TestAddressValidate(t *testing.T) {
	assert.NoError(t, Address{Street: "s", City: "c", Country: "DE"}.Validate())
	assert.Error(t, Address{Street: "  ", City: "c", Country: "DE"}.Validate())
	assert.Error(t, Address{Street: "s", City: "c"}.Validate())
	assert.Equal(t, "Berlin", Address{City: " Berlin "}.Normalize().City)
	assert.NoError(t, Address{Street: " 1 Main St ", City: "Berlin", Country: " DE "}.Validate())
}

func TestAddressValidateUsesFieldTags(t *testing.T) {
	long := strings.Repeat("x", 201)
	err := Address{Street: long, City: "c", Country: "DE"}.Validate()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, map[string]string{"street": "must be at most 200"}, appErr.Details())

	err = Address{Street: "s", City: "c", PostalCode: strings.Repeat("1", 21), Country: "DE"}.Validate()
	require.NotNil(t, pkgerrors.As(err))
	assert.Contains(t, pkgerrors.As(err).Details(), "postalCode")

	err = Address{Street: "s"}.Validate()
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, map[string]string{"city": "is required", "country": "is required"}, pkgerrors.As(err).Details())
}
