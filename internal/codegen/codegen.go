// Package codegen turns allocated sequence numbers into public short codes.
//
// Two strategies exist: Positional is the dense legacy encoding whose codes
// reveal creation order; Secure keys the sequence through HMAC-SHA256 so codes
// are non-sequential at the cost of a truncation-width collision chance, which
// the caller must absorb as a duplicate-key retry.
package codegen

import (
	"crypto/hmac"
	"crypto/sha256"
	"math/big"
	"strconv"
)

// SecureCodeLength is the fixed width of secure-mode codes. A SHA-256 digest
// base-62 encodes to ~43 characters, so truncation never needs padding.
const SecureCodeLength = 7

// Generator maps a sequence number to a short code. Implementations must be
// deterministic for the process lifetime.
type Generator interface {
	Generate(seq uint64) string
}

// Positional emits plain base-62 codes. Short and dense, but guessable.
type Positional struct{}

func (Positional) Generate(seq uint64) string {
	return Base62Encode(seq)
}

// Secure emits fixed-length unguessable codes keyed by a process-lifetime
// secret.
type Secure struct {
	key []byte
}

func NewSecure(secret string) *Secure {
	return &Secure{key: []byte(secret)}
}

func (s *Secure) Generate(seq uint64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(strconv.FormatUint(seq, 10)))
	digest := mac.Sum(nil)

	n := new(big.Int).SetBytes(digest)
	if n.Sign() == 0 {
		return string(alphabet[0])
	}

	base := big.NewInt(62)
	rem := new(big.Int)
	b := make([]byte, 0, 48)
	for n.Sign() > 0 {
		n.QuoRem(n, base, rem)
		b = append(b, alphabet[rem.Int64()])
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}

	code := string(b)
	if len(code) > SecureCodeLength {
		code = code[:SecureCodeLength]
	}
	return code
}
