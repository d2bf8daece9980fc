package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Cluster  ClusterConfig  `yaml:"cluster" json:"cluster"`
	Nemesis  NemesisConfig  `yaml:"nemesis" json:"nemesis"`
	API      APIConfig      `yaml:"api" json:"api"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// ClusterConfig describes the database cluster under test: the node
// inventory, the SSH credentials used to reach it, and the spare pool that
// backs node replacement after a decommission.
type ClusterConfig struct {
	Name        string       `yaml:"name" json:"name"`
	Nodes       []NodeConfig `yaml:"nodes" json:"nodes"`
	SpareNodes  []NodeConfig `yaml:"spare_nodes" json:"spare_nodes"`
	SSH         SSHConfig    `yaml:"ssh" json:"ssh"`
	ServiceName string       `yaml:"service_name" json:"service_name"`
	// Liveness probe tuning for wait-until-up / wait-until-down.
	ProbeInterval time.Duration `yaml:"probe_interval" json:"probe_interval"`
	UpTimeout     time.Duration `yaml:"up_timeout" json:"up_timeout"`
	DownTimeout   time.Duration `yaml:"down_timeout" json:"down_timeout"`
	InitTimeout   time.Duration `yaml:"init_timeout" json:"init_timeout"`
}

type NodeConfig struct {
	Address string `yaml:"address" json:"address"`
	Seed    bool   `yaml:"seed" json:"seed"`
}

type SSHConfig struct {
	User    string        `yaml:"user" json:"user"`
	KeyFile string        `yaml:"key_file" json:"key_file"`
	Port    int           `yaml:"port" json:"port"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type NemesisConfig struct {
	// IntervalMinutes is the pause between disruption cycles, in whole minutes.
	IntervalMinutes int    `yaml:"interval_minutes" json:"interval_minutes"`
	Strategy        string `yaml:"strategy" json:"strategy"`
	// AssetDir overrides the embedded auxiliary scripts when set.
	AssetDir string `yaml:"asset_dir" json:"asset_dir"`
}

type APIConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	DataPath string `yaml:"data_path" json:"data_path"`
	InMemory bool   `yaml:"in_memory" json:"in_memory"`
}

type WorkloadConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Addr        string        `yaml:"addr" json:"addr"`
	Password    string        `yaml:"password" json:"password"`
	DB          int           `yaml:"db" json:"db"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	KeySpace    int           `yaml:"key_space" json:"key_space"`
	WriteRatio  float64       `yaml:"write_ratio" json:"write_ratio"`
	OpTimeout   time.Duration `yaml:"op_timeout" json:"op_timeout"`
	// MaxErrorRate is the error fraction above which Verify fails the run.
	MaxErrorRate float64 `yaml:"max_error_rate" json:"max_error_rate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Load reads configuration with the following precedence:
// defaults < config file < environment variables.
func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := loadFromFile(config, configPath); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Name:        "cluster-under-test",
			Nodes:       []NodeConfig{},
			SpareNodes:  []NodeConfig{},
			ServiceName: "db",
			SSH: SSHConfig{
				User:    "root",
				Port:    22,
				Timeout: 30 * time.Second,
			},
			ProbeInterval: 5 * time.Second,
			UpTimeout:     10 * time.Minute,
			DownTimeout:   5 * time.Minute,
			InitTimeout:   30 * time.Minute,
		},
		Nemesis: NemesisConfig{
			IntervalMinutes: 30,
			Strategy:        "chaos",
		},
		API: APIConfig{
			Enabled:      true,
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		History: HistoryConfig{
			Enabled:  true,
			DataPath: "./data/history",
			InMemory: false,
		},
		Workload: WorkloadConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			Concurrency:  4,
			KeySpace:     10000,
			WriteRatio:   0.5,
			OpTimeout:    5 * time.Second,
			MaxErrorRate: 0.05,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func loadFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

func loadFromEnvironment(config *Config) {
	// Cluster configuration
	if name := os.Getenv("NEMESIS_CLUSTER_NAME"); name != "" {
		config.Cluster.Name = name
	}
	if service := os.Getenv("NEMESIS_CLUSTER_SERVICE"); service != "" {
		config.Cluster.ServiceName = service
	}
	if user := os.Getenv("NEMESIS_SSH_USER"); user != "" {
		config.Cluster.SSH.User = user
	}
	if keyFile := os.Getenv("NEMESIS_SSH_KEY_FILE"); keyFile != "" {
		config.Cluster.SSH.KeyFile = keyFile
	}

	// Scheduler configuration
	if interval := os.Getenv("NEMESIS_INTERVAL_MINUTES"); interval != "" {
		if m, err := strconv.Atoi(interval); err == nil {
			config.Nemesis.IntervalMinutes = m
		}
	}
	if strategy := os.Getenv("NEMESIS_STRATEGY"); strategy != "" {
		config.Nemesis.Strategy = strategy
	}

	// API configuration
	if port := os.Getenv("NEMESIS_API_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.API.Port = p
		}
	}

	// History configuration
	if dataPath := os.Getenv("NEMESIS_HISTORY_PATH"); dataPath != "" {
		config.History.DataPath = dataPath
	}
	if inMemory := os.Getenv("NEMESIS_HISTORY_IN_MEMORY"); inMemory != "" {
		if b, err := strconv.ParseBool(inMemory); err == nil {
			config.History.InMemory = b
		}
	}

	// Workload configuration
	if enabled := os.Getenv("NEMESIS_WORKLOAD_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Workload.Enabled = b
		}
	}
	if addr := os.Getenv("NEMESIS_WORKLOAD_ADDR"); addr != "" {
		config.Workload.Addr = addr
	}

	// Logging configuration
	if level := os.Getenv("NEMESIS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("NEMESIS_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Metrics configuration
	if enabled := os.Getenv("NEMESIS_METRICS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Metrics.Enabled = b
		}
	}
}

func (c *Config) Validate() error {
	// Scheduler validation
	if c.Nemesis.IntervalMinutes <= 0 {
		return fmt.Errorf("nemesis interval must be positive, got %d", c.Nemesis.IntervalMinutes)
	}

	// Cluster validation
	if c.Cluster.ServiceName == "" {
		return fmt.Errorf("cluster service name cannot be empty")
	}
	seen := make(map[string]bool)
	for _, node := range c.Cluster.Nodes {
		if node.Address == "" {
			return fmt.Errorf("cluster node with empty address")
		}
		if seen[node.Address] {
			return fmt.Errorf("duplicate cluster node address: %s", node.Address)
		}
		seen[node.Address] = true
	}
	for _, node := range c.Cluster.SpareNodes {
		if node.Address == "" {
			return fmt.Errorf("spare node with empty address")
		}
		if node.Seed {
			return fmt.Errorf("spare node %s cannot be a seed", node.Address)
		}
		if seen[node.Address] {
			return fmt.Errorf("spare node address already in cluster: %s", node.Address)
		}
		seen[node.Address] = true
	}
	if c.Cluster.SSH.Port <= 0 || c.Cluster.SSH.Port > 65535 {
		return fmt.Errorf("invalid SSH port: %d", c.Cluster.SSH.Port)
	}
	if c.Cluster.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			return fmt.Errorf("invalid API port: %d", c.API.Port)
		}
	}

	// Workload validation
	if c.Workload.Enabled {
		if c.Workload.Addr == "" {
			return fmt.Errorf("workload address cannot be empty")
		}
		if c.Workload.Concurrency <= 0 {
			return fmt.Errorf("workload concurrency must be positive, got %d", c.Workload.Concurrency)
		}
		if c.Workload.WriteRatio < 0 || c.Workload.WriteRatio > 1 {
			return fmt.Errorf("workload write ratio must be within [0,1], got %f", c.Workload.WriteRatio)
		}
		if c.Workload.MaxErrorRate < 0 || c.Workload.MaxErrorRate > 1 {
			return fmt.Errorf("workload max error rate must be within [0,1], got %f", c.Workload.MaxErrorRate)
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
