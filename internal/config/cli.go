package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"

	"nomnomhub/internal/pkg"
)

// Defaults for values the config file leaves out
const (
	DefaultAPIAddr       = "127.0.0.1:7420"
	DefaultLogLevel      = "info"
	DefaultEditorTimeout = "10m"
)

// Config is the user configuration in ~/.nomnom/config.toml
type Config struct {
	// EditorsPath holds one directory per installed editor version
	EditorsPath string `toml:"editors_path" json:"editorsPath"`
	// HubPath is the vendor hub executable, launched by "nomnom hub"
	HubPath string `toml:"hub_path,omitempty" json:"hubPath,omitempty"`
	// AppDataPath is the vendor hub data directory holding user templates
	AppDataPath    string `toml:"appdata_path" json:"appDataPath"`
	CacheDir       string `toml:"cache_dir" json:"cacheDir"`
	NewProjectPath string `toml:"new_project_path" json:"newProjectPath"`
	EditorTimeout  string `toml:"editor_timeout" json:"editorTimeout"`
	APIAddr        string `toml:"api_addr" json:"apiAddr"`
	LogLevel       string `toml:"log_level" json:"logLevel"`
	// GitToken authenticates git package clones over https
	GitToken string `toml:"git_token,omitempty" json:"-"`
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nomnom"), nil
}

// ConfigPath returns the full path to config.toml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Defaults returns the configuration used when no file exists
func Defaults() Config {
	home, _ := os.UserHomeDir()

	cacheDir := filepath.Join(home, ".cache", "nomnomhub")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "nomnomhub")
	}
	appData := filepath.Join(home, ".config", "UnityHub")
	if dir, err := os.UserConfigDir(); err == nil {
		appData = filepath.Join(dir, "UnityHub")
	}

	return Config{
		EditorsPath:    defaultEditorsPath(home),
		AppDataPath:    appData,
		CacheDir:       cacheDir,
		NewProjectPath: filepath.Join(home, "Projects"),
		EditorTimeout:  DefaultEditorTimeout,
		APIAddr:        DefaultAPIAddr,
		LogLevel:       DefaultLogLevel,
	}
}

func defaultEditorsPath(home string) string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\Unity\Hub\Editor`
	case "darwin":
		return "/Applications/Unity/Hub/Editor"
	default:
		return filepath.Join(home, "Unity", "Hub", "Editor")
	}
}

// Load reads ~/.nomnom/config.toml and applies NOMNOM_* overrides
func Load() (Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads the config at path over the defaults. A missing file yields
// the defaults. Environment overrides are applied last.
func LoadFrom(configPath string) (Config, error) {
	config := Defaults()

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", pkg.ErrInvalidFormat, configPath, err)
		}
	}

	config = applyEnv(config)
	if _, err := config.Timeout(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Save writes the config to ~/.nomnom/config.toml
func Save(config Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(configPath, config)
}

// SaveTo writes the config to path, creating its directory
func SaveTo(configPath string, config Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o600)
}

// Timeout parses EditorTimeout. An empty value means the default.
func (c Config) Timeout() (time.Duration, error) {
	value := c.EditorTimeout
	if value == "" {
		value = DefaultEditorTimeout
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, pkg.NewError(pkg.ErrInvalidFormat, "editor_timeout must be a positive duration such as 10m").With("value", value)
	}
	return d, nil
}
