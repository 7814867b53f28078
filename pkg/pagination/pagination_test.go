package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	norm := Params{}.Normalize()
	assert.Equal(t, 1, norm.Page)
	assert.Equal(t, DefaultPerPage, norm.PerPage)
}

func TestNormalizeCapsPerPage(t *testing.T) {
	norm := Params{Page: 3, PerPage: 10_000}.Normalize()
	assert.Equal(t, MaxPerPage, norm.PerPage)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, PerPage: 5}.Offset())
	assert.Equal(t, 5, Params{Page: 2, PerPage: 5}.Offset())
	assert.Equal(t, 0, Params{Page: -4, PerPage: 5}.Offset())
}
