package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 9, cfg.Window.MinHour)
	assert.Equal(t, 21, cfg.Window.MaxHour)
	assert.Equal(t, 300, cfg.Scheduling.PerHour)
	assert.Equal(t, 50, cfg.Scheduling.LTPosts)
	assert.Equal(t, 20, cfg.Scheduling.MTPosts)
	assert.Equal(t, DefaultWeights, cfg.Weights)
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "editor.toml")
	contents := `
database_path = "test.db"

[window]
min_hour = 9
max_hour = 21

[scheduling]
per_hour = 3
lt_posts = 40
mt_posts = 20

[weights]
lt_topic = 0.2
lt_mood = 0.1
mt_topic = 0.1
mt_mood = 0.2
mt_author = 0.1
time_best = 0.25
time_expire = 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test.db", cfg.DatabasePath)
	assert.Equal(t, 9, cfg.Window.MinHour)
	assert.Equal(t, 21, cfg.Window.MaxHour)
	assert.Equal(t, 3, cfg.Scheduling.PerHour)
	assert.InDelta(t, 0.2, cfg.Weights.LTTopic, 1e-9)
}

func TestLoadRejectsInvertedWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "editor.toml")
	contents := "[window]\nmin_hour = 22\nmax_hour = 5\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestWeightsAsMap(t *testing.T) {
	m := DefaultWeights.AsMap()
	assert.Len(t, m, 7)
	sum := 0.0
	for _, v := range m {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
