package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserConfigBootstrapsDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().App.Port, cfg.App.Port)
	assert.NotEmpty(t, cfg.Technologies)

	// second call must not clobber user edits
	cfg.App.Port = 9999
	require.NoError(t, SaveAtomic(path, cfg))

	again, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	reloaded, err := Load(again)
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.App.Port)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Exports.Dir = ""
	cfg.Pipeline.DetectWorkers = 0
	cfg.Technologies = append(cfg.Technologies, Technology{Name: "  Rust ", Keywords: []string{"rust"}, Weight: 0.5})

	out, vr := NormalizeAndValidate(cfg)
	assert.True(t, vr.OK(), "errors: %v", vr.Errors)
	assert.Equal(t, "exports", out.Exports.Dir)
	assert.Equal(t, 4, out.Pipeline.DetectWorkers)
	assert.Equal(t, "Rust", out.Technologies[len(out.Technologies)-1].Name)
}

func TestValidateCatchesTaxonomyMistakes(t *testing.T) {
	cfg := Default()
	cfg.Technologies = []Technology{
		{Name: "Go", Keywords: []string{"golang"}, Weight: 1},
		{Name: "go", Keywords: []string{"go "}, Weight: 1},  // duplicate name
		{Name: "Python", Keywords: nil, Weight: 1},          // no keywords
		{Name: "Java", Keywords: []string{"java"}, Weight: -1}, // negative weight
	}

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())
	assert.Len(t, vr.Errors, 3)
	// nothing is a target: scoring warning expected
	assert.NotEmpty(t, vr.Warnings)
}

func TestSaveAtomicKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	require.NoError(t, SaveAtomic(path, Default()))

	cfg := Default()
	cfg.App.Port = 1234
	require.NoError(t, SaveAtomic(path, cfg))

	_, err := os.Stat(path + ".bak")
	assert.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, reloaded.App.Port)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.App.Port = -1
	err := SaveAtomic(filepath.Join(t.TempDir(), "config.yml"), cfg)
	assert.Error(t, err)
}
