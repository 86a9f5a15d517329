package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	prefixes := []string{"?", "s!"}

	inv, ok := Parse("?sauce https://x/a.png", prefixes)
	require.True(t, ok)
	assert.Same(t, Sauce, inv.Command)
	assert.Equal(t, []string{"https://x/a.png"}, inv.Args)

	inv, ok = Parse("s!SOURCE", prefixes)
	require.True(t, ok)
	assert.Same(t, Sauce, inv.Command)
	assert.Empty(t, inv.Args)

	inv, ok = Parse("?gban 1234 spamming   the server", prefixes)
	require.True(t, ok)
	assert.Same(t, BanGuild, inv.Command)
	assert.Equal(t, "1234 spamming   the server", inv.Rest)
	assert.Equal(t, []string{"1234", "spamming", "the", "server"}, inv.Args)

	inv, ok = Parse("?sauce\nhttps://x/a.png", prefixes)
	require.True(t, ok)
	assert.Same(t, Sauce, inv.Command)
	assert.Equal(t, []string{"https://x/a.png"}, inv.Args)

	for _, content := range []string{"sauce", "?unknown", "", "!sauce", "?"} {
		_, ok := Parse(content, prefixes)
		assert.False(t, ok, content)
	}
}

func TestAliasesAreUnique(t *testing.T) {
	seen := map[string]string{}
	for _, c := range All {
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			prev, dup := seen[name]
			assert.False(t, dup, "%s used by %s and %s", name, prev, c.Name)
			seen[name] = c.Name
		}
	}
}
