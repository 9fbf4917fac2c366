package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumeric(t *testing.T) {
	n, ok := Numeric("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = Numeric("ksampler")
	assert.False(t, ok)

	_, ok = Numeric("")
	assert.False(t, ok)
}

func TestLess(t *testing.T) {
	// Numeric ids compare by value, not lexicographically.
	assert.True(t, Less("9", "10"))
	assert.False(t, Less("10", "9"))

	// Numeric always precedes non-numeric.
	assert.True(t, Less("100", "alpha"))
	assert.False(t, Less("alpha", "100"))

	// Non-numeric falls back to string order.
	assert.True(t, Less("alpha", "beta"))

	// Different spellings of the same value stay deterministic.
	assert.True(t, Less("07", "7"))
	assert.False(t, Less("7", "07"))
}

func TestMin(t *testing.T) {
	assert.Equal(t, "", Min(nil))
	assert.Equal(t, "3", Min([]string{"12", "3", "7"}))
	assert.Equal(t, "5", Min([]string{"custom_saver", "5"}))
}
