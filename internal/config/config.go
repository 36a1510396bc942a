package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/gajzzs/studyblock/internal/platform"
)

type Config struct {
	HostsPath           string   `mapstructure:"hosts_path" json:"hosts_path"`
	BackupSuffix        string   `mapstructure:"backup_suffix" json:"backup_suffix"`
	ListenAddr          string   `mapstructure:"listen_addr" json:"listen_addr"`
	DefaultDuration     int      `mapstructure:"default_duration" json:"default_duration"`
	DistractingWebsites []string `mapstructure:"distracting_websites" json:"distracting_websites"`
	FlushCache          bool     `mapstructure:"flush_cache" json:"flush_cache"`
	UnblockOnStop       bool     `mapstructure:"unblock_on_stop" json:"unblock_on_stop"`
	APIKeyHash          string   `mapstructure:"api_key_hash" json:"-"`
	CORSOrigins         []string `mapstructure:"cors_origins" json:"cors_origins"`
}

var (
	ConfigDir  = "/etc/studyblock"
	ConfigFile = filepath.Join(ConfigDir, "config.yaml")
	config     *Config
)

// DefaultConfig returns the built-in settings. HostsPath stays empty so the
// platform lookup decides it at load time.
func DefaultConfig() *Config {
	return &Config{
		BackupSuffix:    ".studyblock.bak",
		ListenAddr:      "127.0.0.1:5000",
		DefaultDuration: 25,
		DistractingWebsites: []string{
			"facebook.com",
			"twitter.com",
			"youtube.com",
			"instagram.com",
			"reddit.com",
		},
		FlushCache:    true,
		UnblockOnStop: true,
		CORSOrigins: []string{
			"http://localhost:4200",
			"http://127.0.0.1:4200",
			"http://localhost:8080",
		},
	}
}

// Load merges defaults, the config file and STUDYBLOCK_* environment
// variables. An empty path searches ConfigDir and the user config dir; a
// missing file there is not an error.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("hosts_path", defaults.HostsPath)
	v.SetDefault("backup_suffix", defaults.BackupSuffix)
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("default_duration", defaults.DefaultDuration)
	v.SetDefault("distracting_websites", defaults.DistractingWebsites)
	v.SetDefault("flush_cache", defaults.FlushCache)
	v.SetDefault("unblock_on_stop", defaults.UnblockOnStop)
	v.SetDefault("api_key_hash", defaults.APIKeyHash)
	v.SetDefault("cors_origins", defaults.CORSOrigins)

	v.SetEnvPrefix("STUDYBLOCK")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "studyblock"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.HostsPath == "" {
		p, err := platform.Current()
		if err != nil {
			return nil, err
		}
		cfg.HostsPath = p.HostsPath
	}
	if cfg.DefaultDuration <= 0 {
		return nil, fmt.Errorf("default_duration must be positive, got %d", cfg.DefaultDuration)
	}
	return cfg, nil
}

// InitConfig loads the configuration used by GetConfig.
func InitConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	config = cfg
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = DefaultConfig()
		if p, err := platform.Current(); err == nil {
			config.HostsPath = p.HostsPath
		}
	}
	return config
}

// WriteDefault writes a commented default configuration file.
func WriteDefault(path string) error {
	content := `# studyblock configuration

# Hosts file to manage. Leave empty to use the platform default
# (/etc/hosts, or C:\Windows\System32\drivers\etc\hosts on Windows).
hosts_path: ""

# The hosts file is copied to <hosts_path><backup_suffix> before every block.
backup_suffix: .studyblock.bak

# Address of the HTTP API started by "studyblock serve".
listen_addr: 127.0.0.1:5000

# Minutes recorded with a block when none is given. Blocks never expire on
# their own; run "studyblock unblock" to lift them.
default_duration: 25

# Blocked by "studyblock block" when no hostnames are given.
distracting_websites:
  - facebook.com
  - twitter.com
  - youtube.com
  - instagram.com
  - reddit.com

# Flush the resolver cache after editing the hosts file.
flush_cache: true

# Remove the managed block when the daemon stops.
unblock_on_stop: true

# Require X-API-Key on the HTTP API. Generate with "studyblock config hash-key".
api_key_hash: ""

cors_origins:
  - http://localhost:4200
  - http://127.0.0.1:4200
  - http://localhost:8080
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
