// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/gavel/database/plugin"
)

type ctxKey string

const configContextKey ctxKey = "gavel.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   yaml.Node                 `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin  string `yaml:"metadataPlugin"  envconfig:"DATABASE_METADATA_PLUGIN"`
	BlobPlugin      string `yaml:"blobPlugin"      envconfig:"DATABASE_BLOB_PLUGIN"`
	TlsKeyFilePath  string `yaml:"tlsKeyFilePath"  envconfig:"TLS_KEY_FILE_PATH"`
	TlsCertFilePath string `yaml:"tlsCertFilePath" envconfig:"TLS_CERT_FILE_PATH"`
	DatabasePath    string `yaml:"databasePath"                                     split_words:"true"`
	BindAddr        string `yaml:"bindAddr"                                         split_words:"true"`
	RpcUrl          string `yaml:"rpcUrl"                                           split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                                  split_words:"true"`
	// Certificate file paths of the members bootstrapped as Active
	GenesisMembers []string `yaml:"genesisMembers" split_words:"true"`
	RpcPort        uint     `yaml:"rpcPort"        split_words:"true"`
	MetricsPort    uint     `yaml:"metricsPort"    split_words:"true"`
	QueueSize      int      `yaml:"queueSize"      split_words:"true"`
	Tracing        bool     `yaml:"tracing"`
	TracingStdout  bool     `yaml:"tracingStdout"  split_words:"true"`
}

// ShutdownTimeoutDuration returns the parsed shutdown timeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	ret, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: must be positive", c.ShutdownTimeout)
	}
	return ret, nil
}

// GenesisCertificates reads the certificates of the genesis members
func (c *Config) GenesisCertificates() ([][]byte, error) {
	ret := make([][]byte, 0, len(c.GenesisMembers))
	for _, certPath := range c.GenesisMembers {
		cert, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("error reading genesis member certificate: %w", err)
		}
		if len(cert) == 0 {
			return nil, fmt.Errorf("genesis member certificate %s is empty", certPath)
		}
		ret = append(ret, cert)
	}
	return ret, nil
}

func defaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".gavel",
		MetricsPort:     12799,
		RpcPort:         9090,
		RpcUrl:          "http://127.0.0.1:9090",
		QueueSize:       16,
		TlsCertFilePath: "",
		TlsKeyFilePath:  "",
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the configuration from the defaults, the config file
// and the environment, in that order
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.gavel/gavel.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gavel", "gavel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/gavel/gavel.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/gavel/gavel.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if !tempCfg.Config.IsZero() {
			// Overlay config values onto the defaults
			if err := tempCfg.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config
			err = yaml.Unmarshal(buf, cfg)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		// Process plugin configurations
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		// Handle database section if present
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				pluginName, blobConfig := splitPluginSection("blob", tempCfg.Database.Blob)
				if pluginName != "" {
					cfg.BlobPlugin = pluginName
				}
				mergePluginConfig(pluginConfig, "blob", blobConfig)
			}
			if tempCfg.Database.Metadata != nil {
				pluginName, metadataConfig := splitPluginSection("metadata", tempCfg.Database.Metadata)
				if pluginName != "" {
					cfg.MetadataPlugin = pluginName
				}
				mergePluginConfig(pluginConfig, "metadata", metadataConfig)
			}
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("gavel", cfg)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if _, err := cfg.ShutdownTimeoutDuration(); err != nil {
		return nil, err
	}
	if cfg.QueueSize < 0 {
		return nil, errors.New("queueSize must not be negative")
	}
	globalConfig = cfg
	return cfg, nil
}

// splitPluginSection extracts the selected plugin name from a database
// section and returns the remaining per-plugin option maps
func splitPluginSection(
	sectionName string,
	section map[string]any,
) (string, map[string]map[string]any) {
	var pluginName string
	if pluginVal, exists := section["plugin"]; exists {
		if tmpName, ok := pluginVal.(string); ok {
			pluginName = tmpName
		}
	}
	ret := make(map[string]map[string]any)
	for k, v := range section {
		if k == "plugin" {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			// Log skipped non-map config entries
			fmt.Fprintf(os.Stderr, "warning: skipping %s config entry %q: expected map, got %T\n", sectionName, k, v)
		}
	}
	return pluginName, ret
}

// mergePluginConfig merges plugin options into the existing config instead
// of overwriting it
func mergePluginConfig(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	cfg map[string]map[string]any,
) {
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = cfg
		return
	}
	maps.Copy(pluginConfig[pluginType], cfg)
}

func GetConfig() *Config {
	return globalConfig
}
