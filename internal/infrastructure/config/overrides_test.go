package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOverrides = `
model: claude-3-5-haiku-20241022
system_message: |
  Render pages as plain HTML.
user_message: "GET [url]"
models:
  - id: local-coder
    provider: ollama
    name: local coder
`

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides([]byte(sampleOverrides))
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-haiku-20241022", o.Model)
	assert.Equal(t, "Render pages as plain HTML.\n", o.SystemMessage)
	assert.Equal(t, "GET [url]", o.UserMessage)
	require.Len(t, o.Models, 1)
	assert.Equal(t, ModelOverride{ID: "local-coder", Provider: "ollama", DisplayName: "local coder"}, o.Models[0])
	assert.False(t, o.Empty())
}

func TestParseOverridesRejects(t *testing.T) {
	_, err := ParseOverrides([]byte("modle: typo\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = ParseOverrides([]byte("models:\n  - provider: openai\n"))
	assert.Error(t, err)
}

func TestLoadOverridesEmptyPath(t *testing.T) {
	o, err := LoadOverrides("")
	require.NoError(t, err)
	assert.True(t, o.Empty())

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: a\n"), 0o644))

	initial, err := LoadOverrides(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, initial, nil)
	require.NoError(t, err)

	got := make(chan *Overrides, 4)
	w.OnChange(func(o *Overrides) { got <- o })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A broken write keeps the previous overrides
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed\n"), 0o644))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, "a", w.Current().Model)

	require.NoError(t, os.WriteFile(path, []byte("model: b\n"), 0o644))
	select {
	case o := <-got:
		assert.Equal(t, "b", o.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	assert.Equal(t, "b", w.Current().Model)
}

const sampleTOML = `
model = "claude-3-5-haiku-20241022"
user_message = "GET [url]"

[[models]]
id = "local-coder"
provider = "ollama"
name = "local coder"
`

func TestParseOverridesTOML(t *testing.T) {
	o, err := ParseOverridesAs([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-haiku-20241022", o.Model)
	assert.Equal(t, "GET [url]", o.UserMessage)
	require.Len(t, o.Models, 1)
	assert.Equal(t, ModelOverride{ID: "local-coder", Provider: "ollama", DisplayName: "local coder"}, o.Models[0])

	_, err = ParseOverridesAs([]byte(`modle = "typo"`), FormatTOML)
	assert.Error(t, err)
}

func TestLoadOverridesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "GET [url]", o.UserMessage)

	assert.Equal(t, FormatTOML, FormatOf("x.TOML"))
	assert.Equal(t, FormatYAML, FormatOf("x.yml"))
	assert.Equal(t, FormatYAML, FormatOf("x"))
}
