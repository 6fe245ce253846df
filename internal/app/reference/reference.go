// Package reference generates human-shareable correlation codes for bank
// transfers. Codes are random, not time-derived, so concurrent creation
// cannot collide by construction; uniqueness among outstanding requests is
// still enforced by the store and callers retry on the rare collision.
package reference

import (
	"crypto/rand"
	"fmt"
)

// Crockford base32: no I, L, O, U, so codes survive handwriting and phone
// calls to bank support.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const codeLength = 10

// New returns a code like "RF-4R7MQ2XKD9". The prefix identifies the product
// line on bank statements.
func New(prefix string) (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return prefix + "-" + string(buf), nil
}
