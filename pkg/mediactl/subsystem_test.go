package mediactl

import (
	"errors"
	"testing"

	ole "github.com/go-ole/go-ole"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoinitMode(t *testing.T) {
	cases := map[string]CoinitMode{
		"":               CoinitMultithreaded,
		"multithreaded":  CoinitMultithreaded,
		" MultiThreaded": CoinitMultithreaded,
		"apartment":      CoinitApartmentThreaded,
		"APARTMENT":      CoinitApartmentThreaded,
	}

	for input, expected := range cases {
		mode, err := ParseCoinitMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, mode, input)
	}

	mode, err := ParseCoinitMode("sta")
	assert.Error(t, err)
	assert.Equal(t, CoinitMultithreaded, mode)

	assert.Equal(t, "apartment", CoinitApartmentThreaded.String())
	assert.Equal(t, uint32(ole.COINIT_APARTMENTTHREADED), CoinitApartmentThreaded.oleFlag())
	assert.Equal(t, uint32(ole.COINIT_MULTITHREADED), CoinitMultithreaded.oleFlag())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "multimedia", RoleMultimedia.String())
	assert.Equal(t, "role(9)", Role(9).String())
}

func TestNewCorrelationToken(t *testing.T) {
	first, err := newCorrelationToken()
	require.NoError(t, err)
	second, err := newCorrelationToken()
	require.NoError(t, err)

	assert.False(t, ole.IsEqualGUID(first, second))
	assert.False(t, ole.IsEqualGUID(first, ole.IID_NULL))
}

func TestForeignError(t *testing.T) {
	assert.NoError(t, foreignError("Activate", nil))

	err := foreignError("Activate", errFake)

	var foreign *ForeignError
	require.True(t, errors.As(err, &foreign))
	assert.Equal(t, "Activate", foreign.Op)
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, "Activate: fake failure", err.Error())
}
