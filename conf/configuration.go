// Package conf loads the server configuration from a TOML file into a single
// immutable struct materialized at startup. Unknown keys are tolerated for
// forward compatibility; missing required keys are fatal.
package conf

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// ContentDirectory is one `[[content]]` scan root. Only the "movies" type is
// recognized.
type ContentDirectory struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	// UseFolderNames titles a directory's single video after the directory.
	// Defaults to true.
	UseFolderNames *bool `mapstructure:"use_folder_names"`
	// UseCollections materializes per-folder container objects. Defaults to
	// true.
	UseCollections *bool `mapstructure:"use_collections"`
}

func (c ContentDirectory) FolderNames() bool { return c.UseFolderNames == nil || *c.UseFolderNames }
func (c ContentDirectory) Collections() bool { return c.UseCollections == nil || *c.UseCollections }

type DBOptions struct {
	Path string `mapstructure:"path"`
}

type ServerOptions struct {
	UUID     string `mapstructure:"uuid"`
	Port     uint16 `mapstructure:"port"`
	Hostname string `mapstructure:"hostname"`
	Name     string `mapstructure:"name"`
}

type LoggingOptions struct {
	Path     string `mapstructure:"path"`
	Truncate bool   `mapstructure:"truncate"`
	Level    string `mapstructure:"level"`
}

// Config is the fully resolved configuration. It is read-only after Load.
type Config struct {
	Content []ContentDirectory `mapstructure:"content"`
	DB      DBOptions          `mapstructure:"db"`
	Server  ServerOptions      `mapstructure:"server"`
	Logging LoggingOptions     `mapstructure:"logging"`
}

const defaultDBPath = "/var/lib/eems/db"

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("db.path", defaultDBPath)
	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading configuration %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration %q: %w", path, err)
	}

	for i, dir := range cfg.Content {
		if dir.Type != "movies" {
			return nil, fmt.Errorf("content[%d]: unknown content type %q", i, dir.Type)
		}
		if dir.Path == "" {
			return nil, fmt.Errorf("content[%d]: path is required", i)
		}
	}

	if cfg.Server.Hostname == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolving host name: %w", err)
		}
		cfg.Server.Hostname = host
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = "EEMSat " + cfg.Server.Hostname
	}
	if cfg.Server.UUID == "" {
		// Stable identity derived from the advertised host, so restarts keep
		// the same USN without persisting anything.
		cfg.Server.UUID = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(cfg.Server.Hostname)).String()
	} else if _, err := uuid.Parse(cfg.Server.UUID); err != nil {
		return nil, fmt.Errorf("server.uuid: %w", err)
	}

	return &cfg, nil
}
