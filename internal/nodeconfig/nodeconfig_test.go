package nodeconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseJSONAndYAML(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{
			name:   "json",
			input:  `{"bitscreen":true,"share":false,"advanced":{"enabled":true,"list":["a"]},"filters":{"internal":true,"external":true}}`,
			format: FormatJSON,
		},
		{
			name: "yaml",
			input: strings.Join([]string{
				"bitscreen: true",
				"share: false",
				"advanced:",
				"  enabled: true",
				"  list: [a]",
				"filters:",
				"  internal: true",
				"  external: true",
			}, "\n"),
			format: FormatYAML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.True(t, cfg.BitScreen)
			assert.False(t, cfg.Share)
			assert.Equal(t, Advanced{Enabled: true, List: []string{"a"}}, cfg.Advanced)
			assert.Equal(t, Filters{Internal: true, External: true}, cfg.Filters)
			assert.Equal(t, tt.format, cfg.Format())
		})
	}
}

func TestSaveKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte("bitscreen: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.BitScreen = true
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bitscreen: true")

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.BitScreen)
	assert.Equal(t, FormatYAML, reloaded.Format())
}

func TestSaveNewFileIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config")
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestApply(t *testing.T) {
	cfg := Default()
	cfg.Share = true

	err := cfg.Apply(map[string]json.RawMessage{
		"bitscreen": json.RawMessage(`true`),
		"filters":   json.RawMessage(`{"external":true}`),
		"theme":     json.RawMessage(`"dark"`),
	})
	require.NoError(t, err)

	assert.True(t, cfg.BitScreen)
	assert.True(t, cfg.Share, "absent keys keep their value")
	assert.Equal(t, Filters{External: true}, cfg.Filters)

	err = cfg.Apply(map[string]json.RawMessage{"share": json.RawMessage(`"yes"`)})
	assert.Error(t, err)
}
