package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"powercast/internal/common"
)

type Settings struct {
	ListenHost     string
	ListenPort     int
	TreeModelPath  string
	SeqModelPath   string
	DataPath       string
	RequestTimeout time.Duration
	HistoryLimit   int

	// Dashboard binary
	DashboardPort int
	ServiceURL    string
}

type ConfigFile struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	Models struct {
		TreePath string `yaml:"treePath"`
		SeqPath  string `yaml:"seqPath"`
	} `yaml:"models"`

	History struct {
		DataPath string `yaml:"dataPath"`
		Limit    int    `yaml:"limit"`
	} `yaml:"history"`

	Dashboard struct {
		Port       int    `yaml:"port"`
		ServiceURL string `yaml:"serviceURL"`
	} `yaml:"dashboard"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout
	}

	settings := Settings{
		ListenHost:     getEnvOrDefault(common.EnvListenHost, defaultString(config.Server.Host, common.DefaultListenHost)),
		ListenPort:     getIntFromEnvOrConfig(common.EnvListenPort, config.Server.Port, common.DefaultListenPort),
		TreeModelPath:  getEnvOrDefault(common.EnvTreeModelPath, defaultString(config.Models.TreePath, common.DefaultTreeModelPath)),
		SeqModelPath:   getEnvOrDefault(common.EnvSeqModelPath, defaultString(config.Models.SeqPath, common.DefaultSeqModelPath)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.History.DataPath),
		RequestTimeout: requestTimeout,
		HistoryLimit:   getIntFromEnvOrConfig(common.EnvHistoryLimit, config.History.Limit, common.DefaultHistoryLimit),
		DashboardPort:  getIntFromEnvOrConfig(common.EnvDashboardPort, config.Dashboard.Port, common.DefaultDashboardPort),
		ServiceURL:     getEnvOrDefault(common.EnvServiceURL, defaultString(config.Dashboard.ServiceURL, common.DefaultServiceURL)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ListenHost:     getEnvOrDefault(common.EnvListenHost, common.DefaultListenHost),
		ListenPort:     getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		TreeModelPath:  getEnvOrDefault(common.EnvTreeModelPath, common.DefaultTreeModelPath),
		SeqModelPath:   getEnvOrDefault(common.EnvSeqModelPath, common.DefaultSeqModelPath),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
		HistoryLimit:   getIntOrDefault(common.EnvHistoryLimit, common.DefaultHistoryLimit),
		DashboardPort:  getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),
		ServiceURL:     getEnvOrDefault(common.EnvServiceURL, common.DefaultServiceURL),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Addr returns the prediction service listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.ListenHost, s.ListenPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func defaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.TreeModelPath == "" {
		return fmt.Errorf("tree model path cannot be empty")
	}
	if settings.SeqModelPath == "" {
		return fmt.Errorf("sequence model path cannot be empty")
	}
	if settings.ListenPort < common.MinPort || settings.ListenPort > common.MaxPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.ListenPort)
	}
	if settings.DashboardPort < common.MinPort || settings.DashboardPort > common.MaxPort {
		return fmt.Errorf("dashboard port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.DashboardPort)
	}
	if settings.RequestTimeout < 100*time.Millisecond || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 100ms and 1m, got %v", settings.RequestTimeout)
	}
	if settings.HistoryLimit <= 0 || settings.HistoryLimit > common.MaxHistoryLimit {
		return fmt.Errorf("history limit must be between 1 and %d, got %d", common.MaxHistoryLimit, settings.HistoryLimit)
	}
	if settings.ServiceURL == "" {
		return fmt.Errorf("service URL cannot be empty")
	}
	return nil
}
