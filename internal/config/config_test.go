package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultDBName), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultLogName), cfg.LogPath)
	assert.Equal(t, DefaultNamespace, cfg.Namespace)
	assert.Equal(t, "m", cfg.Keys.Speak)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreate_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	doc := `storage_backend = "file"
data_dir = "/var/lib/todo"
timezone = "UTC"
speech_command = ["whisper-listen", "--once"]

[keys]
quit = "Q"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "/var/lib/todo", cfg.DataDir)
	assert.Equal(t, []string{"whisper-listen", "--once"}, cfg.SpeechCommand)
	assert.Equal(t, "Q", cfg.Keys.Quit)
	assert.Equal(t, "a", cfg.Keys.Add)
	assert.Equal(t, "x", cfg.Keys.Archive)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadOrCreate_Rejects(t *testing.T) {
	cases := map[string]string{
		"backend":  `storage_backend = "postgres"`,
		"timezone": `timezone = "Mars/Olympus"`,
		"syntax":   `db_path = `,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
			_, err := LoadOrCreate(path)
			assert.Error(t, err)
		})
	}
}

func TestResolveConfigPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/todo/config.toml")
	assert.Equal(t, "/tmp/todo/config.toml", ResolveConfigPath())
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/abs/todo.db", resolvePath("/base", "/abs/todo.db"))
	assert.Equal(t, "/base/todo.db", resolvePath("/base", "todo.db"))
	assert.Equal(t, "file:mem?mode=memory", resolvePath("/base", "file:mem?mode=memory"))
}
