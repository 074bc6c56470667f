// Package hexcodec implements the strict, lowercase, unprefixed hex
// encoding used for digests on the wire. Unlike go-ethereum's hexutil
// (which is 0x-prefixed and case-insensitive on decode), this codec
// rejects anything that isn't exactly the wire format spec.md requires.
package hexcodec

import (
	"encoding/hex"
	"fmt"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
)

// ErrInvalidHex is returned for any input that is not exactly 64 lowercase
// hex characters encoding 32 bytes.
var ErrInvalidHex = fmt.Errorf("invalid hex digest")

// Encode renders d as 64 lowercase hex characters.
func Encode(d digest.Digest) string {
	return hex.EncodeToString(d[:])
}

// Decode parses s as a strict 64-character lowercase hex digest. Uppercase
// characters, odd length, wrong width, and non-hex characters are all
// rejected with ErrInvalidHex.
func Decode(s string) (digest.Digest, error) {
	var d digest.Digest
	if len(s) != 2*digest.Size {
		return d, ErrInvalidHex
	}
	for _, c := range s {
		isLowerHexDigit := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isLowerHexDigit {
			return d, ErrInvalidHex
		}
	}
	n, err := hex.Decode(d[:], []byte(s))
	if err != nil || n != digest.Size {
		return d, ErrInvalidHex
	}
	return d, nil
}
