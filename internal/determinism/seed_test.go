package determinism_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quizsolver/internal/determinism"
)

func TestGenerateSeed(t *testing.T) {
	t.Run("generates consistent seed for same inputs", func(t *testing.T) {
		seed1 := determinism.GenerateSeed("user@example.com", "https://quiz.example.com/q/1")
		seed2 := determinism.GenerateSeed("user@example.com", "https://quiz.example.com/q/1")

		assert.Equal(t, seed1, seed2, "seed should be deterministic for same inputs")
	})

	t.Run("generates different seeds for different urls", func(t *testing.T) {
		seed1 := determinism.GenerateSeed("user@example.com", "https://quiz.example.com/q/1")
		seed2 := determinism.GenerateSeed("user@example.com", "https://quiz.example.com/q/2")

		assert.NotEqual(t, seed1, seed2, "different urls should produce different seeds")
	})

	t.Run("generates different seeds when inputs are swapped", func(t *testing.T) {
		seed1 := determinism.GenerateSeed("a", "b")
		seed2 := determinism.GenerateSeed("b", "a")

		assert.NotEqual(t, seed1, seed2, "swapped inputs should produce different seeds")
	})

	t.Run("handles empty strings", func(t *testing.T) {
		seed1 := determinism.GenerateSeed("", "")
		seed2 := determinism.GenerateSeed("", "")

		assert.Equal(t, seed1, seed2, "empty strings should still produce deterministic seed")
	})

	t.Run("fits in a signed int64", func(t *testing.T) {
		seed := determinism.GenerateSeed("user@example.com", "https://quiz.example.com/q/1")

		assert.LessOrEqual(t, seed, uint64(1)<<63-1)
	})
}
