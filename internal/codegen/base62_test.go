package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase62Encode(t *testing.T) {
	tests := []struct {
		input    uint64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{10, "a"},
		{35, "z"},
		{36, "A"},
		{61, "Z"},
		{62, "10"},
		{125, "21"},
		{3843, "ZZ"},
		{3844, "100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Base62Encode(tt.input), "encode %d", tt.input)
	}
}

func TestBase62RoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 61, 62, 125, 3844, 238327, 916132832, 18446744073709551615} {
		got, err := Base62Decode(Base62Encode(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestBase62DecodeInvalid(t *testing.T) {
	_, err := Base62Decode("")
	assert.Error(t, err)
	_, err = Base62Decode("ab-c")
	assert.Error(t, err)
	_, err = Base62Decode("ab c")
	assert.Error(t, err)
}
