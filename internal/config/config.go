package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultLogName        = "todovoice.log"
	DefaultNamespace      = "tasks"
	EnvConfigPath         = "TODOVOICE_CONFIG"
	appDirName            = "todovoice"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Add      string `toml:"add"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Toggle   string `toml:"toggle"`
	Archive  string `toml:"archive"`
	Delete   string `toml:"delete"`
	Detail   string `toml:"detail"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	Repeat   string `toml:"repeat"`
	Speak    string `toml:"speak"`
	Archived string `toml:"archived"`
}

type Config struct {
	Backend       string   `toml:"storage_backend"`
	DBPath        string   `toml:"db_path"`
	DataDir       string   `toml:"data_dir"`
	Namespace     string   `toml:"namespace"`
	Timezone      string   `toml:"timezone"`
	LogPath       string   `toml:"log_path"`
	LogLevel      string   `toml:"log_level"`
	SpeechCommand []string `toml:"speech_command,omitempty"`
	Keys          Keymap   `toml:"keys"`
}

// ResolveConfigPath returns $TODOVOICE_CONFIG when set, otherwise the
// config file inside the user's config directory.
func ResolveConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist. Relative storage and log paths resolve
// against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	base := filepath.Dir(path)
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg.resolve(base)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) fillDefaults() {
	d := defaultConfig()
	orDefault(&c.Backend, d.Backend)
	orDefault(&c.DBPath, d.DBPath)
	orDefault(&c.DataDir, d.DataDir)
	orDefault(&c.Namespace, d.Namespace)
	orDefault(&c.Timezone, d.Timezone)
	orDefault(&c.LogPath, d.LogPath)
	orDefault(&c.LogLevel, d.LogLevel)

	k, dk := &c.Keys, d.Keys
	orDefault(&k.Quit, dk.Quit)
	orDefault(&k.Add, dk.Add)
	orDefault(&k.Up, dk.Up)
	orDefault(&k.Down, dk.Down)
	orDefault(&k.Toggle, dk.Toggle)
	orDefault(&k.Archive, dk.Archive)
	orDefault(&k.Delete, dk.Delete)
	orDefault(&k.Detail, dk.Detail)
	orDefault(&k.Confirm, dk.Confirm)
	orDefault(&k.Cancel, dk.Cancel)
	orDefault(&k.Repeat, dk.Repeat)
	orDefault(&k.Speak, dk.Speak)
	orDefault(&k.Archived, dk.Archived)
}

func orDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func (c Config) resolve(base string) (Config, error) {
	switch c.Backend {
	case BackendSQLite, BackendFile:
	default:
		return c, fmt.Errorf("unknown storage_backend %q", c.Backend)
	}
	if _, err := c.Location(); err != nil {
		return c, err
	}
	c.DBPath = resolvePath(base, c.DBPath)
	c.DataDir = resolvePath(base, c.DataDir)
	c.LogPath = resolvePath(base, c.LogPath)
	return c, nil
}

func resolvePath(base, p string) string {
	if p == "" || strings.HasPrefix(p, "file:") || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Join(base, p)
}

// Location is the calendar used for recurrence arithmetic and day
// grouping.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local", "local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func defaultConfig() Config {
	return Config{
		Backend:   BackendSQLite,
		DBPath:    DefaultDBName,
		DataDir:   "data",
		Namespace: DefaultNamespace,
		Timezone:  "Local",
		LogPath:   DefaultLogName,
		LogLevel:  "info",
		Keys: Keymap{
			Quit:     "q",
			Add:      "a",
			Up:       "k",
			Down:     "j",
			Toggle:   " ",
			Archive:  "x",
			Delete:   "d",
			Detail:   "enter",
			Confirm:  "enter",
			Cancel:   "esc",
			Repeat:   "r",
			Speak:    "m",
			Archived: "A",
		},
	}
}
