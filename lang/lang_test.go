package lang

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnglish(t *testing.T) {
	c, err := Load("english", zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "Error", c.Get("Global", "generic_error", nil))
	assert.Equal(t, "Reason: spam", c.Get("Admin", "gban_reason", map[string]string{"reason": "spam"}))
	assert.Equal(t, Missing, c.Get("Sauce", "does_not_exist", nil))
	assert.Equal(t, Missing, c.Get("Nope", "generic_error", nil))
}

func TestLoadUnknownLanguage(t *testing.T) {
	_, err := Load("klingon", zerolog.Nop())
	assert.Error(t, err)
}

func TestParseReplacesEveryOccurrence(t *testing.T) {
	c, err := Parse("test", []byte("A:\n  b: \"{x} and {x} but not {y}\"\n"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "1 and 1 but not {y}", c.Get("A", "b", map[string]string{"x": "1"}))
}
