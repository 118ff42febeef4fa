package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForCoverage(t *testing.T) {
	assert.Equal(t, Good, ForCoverage(1))
	assert.Equal(t, Warn, ForCoverage(0.5))
	assert.Equal(t, Danger, ForCoverage(0))
}
