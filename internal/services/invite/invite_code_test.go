package invite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{MinCodeLength, DefaultCodeLength, MaxCodeLength} {
		code, err := GenerateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)

		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q in code %q", c, code)
		}
	}
}

func TestGenerateCodeRejectsOutOfRangeLength(t *testing.T) {
	_, err := GenerateCode(MinCodeLength - 1)
	require.Error(t, err)

	_, err = GenerateCode(MaxCodeLength + 1)
	require.Error(t, err)
}

func TestGenerateCodeIsNotConstant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		code, err := GenerateCode(DefaultCodeLength)
		require.NoError(t, err)
		seen[code] = true
	}

	assert.Greater(t, len(seen), 1)
}

func TestValidCodeFormat(t *testing.T) {
	valid, err := GenerateCode(DefaultCodeLength)
	require.NoError(t, err)

	assert.True(t, ValidCodeFormat(valid))
	assert.True(t, ValidCodeFormat("ABCD1234"))
	assert.True(t, ValidCodeFormat("ABCD12345678"))

	assert.False(t, ValidCodeFormat(""))
	assert.False(t, ValidCodeFormat("SHORT"))
	assert.False(t, ValidCodeFormat("abcd1234"))
	assert.False(t, ValidCodeFormat("ABCD1234567890"))
	assert.False(t, ValidCodeFormat("ABCD 1234"))
}
