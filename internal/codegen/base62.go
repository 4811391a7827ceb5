package codegen

import (
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Base62Encode renders n in positional base-62 using the digit/lower/upper
// alphabet: 0 -> "0", 61 -> "Z", 62 -> "10".
func Base62Encode(n uint64) string {
	if n == 0 {
		return string(alphabet[0])
	}
	b := make([]byte, 0, 11)
	for n > 0 {
		b = append(b, alphabet[n%62])
		n /= 62
	}
	// digits were produced least-significant first
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// Base62Decode inverts Base62Encode exactly.
func Base62Decode(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("base62: empty string")
	}
	var n uint64
	for _, c := range s {
		idx := strings.IndexRune(alphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("base62: invalid character %q", c)
		}
		n = n*62 + uint64(idx)
	}
	return n, nil
}
