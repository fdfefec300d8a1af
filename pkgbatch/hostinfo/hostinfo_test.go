package hostinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBackend(t *testing.T) {
	for _, valid := range []string{"apt", "aptitude", "yum", "pacman", "other"} {
		b, err := ParseBackend(valid)
		assert.NoError(t, err)
		assert.Equal(t, Backend(valid), b)
	}

	_, err := ParseBackend("dnf5")
	assert.Error(t, err)
}

func TestDefaultFamily(t *testing.T) {
	assert.Equal(t, FamilyDebian, DefaultFamily(Apt))
	assert.Equal(t, FamilyDebian, DefaultFamily(Aptitude))
	assert.Equal(t, FamilyRHEL, DefaultFamily(Yum))
	assert.Equal(t, FamilyArch, DefaultFamily(Pacman))
	assert.Equal(t, FamilyOther, DefaultFamily(Other))
}
