package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	args := []string{"-b", "https://auth.example.com", "-x", "junk", "-k", "key123"}
	got := FilterArgs(args, []string{"-b", "-k"})
	assert.Equal(t, []string{"-b", "https://auth.example.com", "-k", "key123"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	args := []string{"--backend=https://auth.example.com", "--other=zzz"}
	got := FilterArgs(args, []string{"--backend"})
	assert.Equal(t, []string{"--backend=https://auth.example.com"}, got)
}

func TestFilterArgs_FlagFollowedByFlag(t *testing.T) {
	// -v has no value; the next token is another flag and must not be eaten.
	args := []string{"-v", "-b", "addr"}
	got := FilterArgs(args, []string{"-v", "-b"})
	assert.Equal(t, []string{"-v", "-b", "addr"}, got)
}

func TestFilterArgs_NothingAllowed(t *testing.T) {
	got := FilterArgs([]string{"-a", "1", "-b", "2"}, nil)
	assert.Empty(t, got)
}
