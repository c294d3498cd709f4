package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })

	Version, Commit, Date = "v1.2.3", "abc1234", "2024-03-01"
	assert.Equal(t, "v1.2.3 (commit: abc1234, built: 2024-03-01)", String())
}
