package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pepperA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
const pepperB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

func TestAliasDeterministic(t *testing.T) {
	h1, err := New(pepperA)
	require.NoError(t, err)
	h2, err := New(pepperA)
	require.NoError(t, err)

	assert.Equal(t, h1.Alias("123456789012345678"), h2.Alias("123456789012345678"))
}

func TestAliasLength(t *testing.T) {
	h, err := New(pepperA)
	require.NoError(t, err)

	for _, uid := range []string{"1", "999999999999999999", ""} {
		assert.Len(t, h.Alias(uid), AliasLength)
	}
}

func TestAliasDiffersByPepper(t *testing.T) {
	h1, err := New(pepperA)
	require.NoError(t, err)
	h2, err := New(pepperB)
	require.NoError(t, err)

	assert.NotEqual(t, h1.Alias("1"), h2.Alias("1"))
}

func TestNewRejectsMalformedPepper(t *testing.T) {
	_, err := New("too-short")
	assert.Error(t, err)

	_, err = New(strings.Repeat("z", 64))
	assert.Error(t, err)
}

func TestAliasWithTag(t *testing.T) {
	assert.Equal(t, "abcdefgh:mod", AliasWithTag("abcdefghijkl", "mod"))
	assert.Equal(t, "abc:mod", AliasWithTag("abc", "mod"))
}
