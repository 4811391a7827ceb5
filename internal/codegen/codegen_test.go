package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionalGenerate(t *testing.T) {
	g := Positional{}
	assert.Equal(t, "21", g.Generate(125))
	assert.Equal(t, "0", g.Generate(0))
}

func TestSecureGenerateDeterministic(t *testing.T) {
	g := NewSecure("test-secret")
	first := g.Generate(42)
	assert.Equal(t, first, g.Generate(42))
	assert.Len(t, first, SecureCodeLength)
}

func TestSecureGenerateDistinct(t *testing.T) {
	g := NewSecure("test-secret")
	seen := make(map[string]uint64)
	for seq := uint64(1); seq <= 5000; seq++ {
		code := g.Generate(seq)
		assert.Len(t, code, SecureCodeLength)
		if prev, ok := seen[code]; ok {
			t.Fatalf("collision: seq %d and %d both map to %q", prev, seq, code)
		}
		seen[code] = seq
	}
}

func TestSecureGenerateKeyDependent(t *testing.T) {
	a := NewSecure("key-a")
	b := NewSecure("key-b")
	assert.NotEqual(t, a.Generate(7), b.Generate(7))
}

func TestSecureCodesNotSequential(t *testing.T) {
	g := NewSecure("test-secret")
	// consecutive sequences must not share an ordered prefix pattern the way
	// positional codes do
	assert.NotEqual(t, g.Generate(1), g.Generate(2))
	assert.NotEqual(t, Positional{}.Generate(1), g.Generate(1))
}
