package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateFallsBack(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "Not found", m.Translate("en-US", "error.not_found"))
	assert.NotEqual(t, "error.not_found", m.Translate("hi-IN", "error.not_found"))
	assert.Equal(t, "Not found", m.Translate("fr-FR", "error.not_found"))
	assert.Equal(t, "missing.key", m.Translate("en-US", "missing.key"))
}

func TestMatch(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, "hi-IN", m.Match("", "hi"))
	assert.Equal(t, "en-US", m.Match("de-DE,de;q=0.9"))
	assert.Equal(t, "en-US", m.Match())
	assert.Equal(t, "hi-IN", m.Match("hi-IN,en;q=0.5"))
}

func TestLoadFromDirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en-US.json"), []byte(`{"error.not_found":"Nothing here"}`), 0o600))

	m, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, m.LoadFromDir(dir))
	assert.Equal(t, "Nothing here", m.Translate("en-US", "error.not_found"))

	require.NoError(t, m.LoadFromDir(filepath.Join(dir, "absent")))
}
