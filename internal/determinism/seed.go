package determinism

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// GenerateSeed creates a deterministic uint64 seed from the requesting
// email and quiz URL. The seed is derived from a SHA-256 hash of the
// concatenated inputs, so repeated solves of the same quiz by the same
// user get reproducible provider sampling.
// The returned value is guaranteed to be <= math.MaxInt64 to stay
// compatible with LLM APIs that take signed int64 seeds.
func GenerateSeed(email, url string) uint64 {
	// Delimit the inputs so distinct pairs never collide.
	input := fmt.Sprintf("%s|%s", email, url)

	hash := sha256.Sum256([]byte(input))

	seed := binary.BigEndian.Uint64(hash[:8])

	// Mask off the high bit so the value fits in int64.
	seed = seed & 0x7FFFFFFFFFFFFFFF

	return seed
}
