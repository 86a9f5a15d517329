// Package lang looks up user facing strings in a YAML catalogue.
package lang

import (
	"embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Missing is returned for strings absent from the catalogue.
const Missing = "<Missing language string>"

//go:embed catalogue/*.yaml
var catalogues embed.FS

// Catalogue maps category and key to a template with {placeholder} fields.
type Catalogue struct {
	language string
	strings  map[string]map[string]string
	log      zerolog.Logger
}

// Load reads the embedded catalogue for language, e.g. "english".
func Load(language string, logger zerolog.Logger) (*Catalogue, error) {
	data, err := catalogues.ReadFile("catalogue/" + language + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown language %q: %w", language, err)
	}
	return Parse(language, data, logger)
}

// Parse builds a catalogue from YAML.
func Parse(language string, data []byte, logger zerolog.Logger) (*Catalogue, error) {
	c := &Catalogue{language: language, log: logger.With().Str("component", "lang").Logger()}
	if err := yaml.Unmarshal(data, &c.strings); err != nil {
		return nil, fmt.Errorf("failed to parse %s language catalogue: %w", language, err)
	}
	return c, nil
}

// Get returns the string for category and key with each {name} replaced by
// repl[name].
func (c *Catalogue) Get(category, key string, repl map[string]string) string {
	s, ok := c.strings[category][key]
	if !ok {
		c.log.Warn().Str("language", c.language).Str("category", category).Str("key", key).Msg("Missing language string")
		return Missing
	}
	for k, v := range repl {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
