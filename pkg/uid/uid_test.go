package uid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, IsValid(a))
	assert.False(t, IsValid("not-a-uuid"))
}

func TestSuffix(t *testing.T) {
	s := Suffix(9)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{9}$`), s)
	assert.Len(t, Suffix(100), 32)
	assert.Empty(t, Suffix(-1))
}
