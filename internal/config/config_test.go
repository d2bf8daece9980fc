package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Nemesis.IntervalMinutes != 30 {
		t.Errorf("Expected default interval to be 30 minutes, got %d", config.Nemesis.IntervalMinutes)
	}

	if config.Nemesis.Strategy != "chaos" {
		t.Errorf("Expected default strategy to be chaos, got %s", config.Nemesis.Strategy)
	}

	if config.Cluster.ServiceName != "db" {
		t.Errorf("Expected default service name to be db, got %s", config.Cluster.ServiceName)
	}

	if config.Cluster.SSH.Port != 22 {
		t.Errorf("Expected default SSH port to be 22, got %d", config.Cluster.SSH.Port)
	}

	if config.API.Port != 8080 {
		t.Errorf("Expected default API port to be 8080, got %d", config.API.Port)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test-config.yaml")

	configContent := `
cluster:
  name: "test-cluster"
  service_name: "scylla"
  nodes:
    - address: "192.168.1.1"
      seed: true
    - address: "192.168.1.2"
  spare_nodes:
    - address: "192.168.1.10"
  ssh:
    user: "centos"
    key_file: "/home/centos/.ssh/key"
  probe_interval: 2s

nemesis:
  interval_minutes: 5
  strategy: "decommission"

logging:
  level: "debug"
  format: "text"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cluster.Name != "test-cluster" {
		t.Errorf("Expected cluster name to be test-cluster, got %s", config.Cluster.Name)
	}

	if config.Cluster.ServiceName != "scylla" {
		t.Errorf("Expected service name to be scylla, got %s", config.Cluster.ServiceName)
	}

	if len(config.Cluster.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(config.Cluster.Nodes))
	}

	if !config.Cluster.Nodes[0].Seed {
		t.Error("Expected first node to be a seed")
	}

	if config.Cluster.SSH.User != "centos" {
		t.Errorf("Expected SSH user to be centos, got %s", config.Cluster.SSH.User)
	}

	if config.Cluster.ProbeInterval != 2*time.Second {
		t.Errorf("Expected probe interval to be 2s, got %v", config.Cluster.ProbeInterval)
	}

	if config.Nemesis.IntervalMinutes != 5 {
		t.Errorf("Expected interval to be 5 minutes, got %d", config.Nemesis.IntervalMinutes)
	}

	if config.Nemesis.Strategy != "decommission" {
		t.Errorf("Expected strategy to be decommission, got %s", config.Nemesis.Strategy)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}

	// Untouched sections keep their defaults
	if config.API.Port != 8080 {
		t.Errorf("Expected default API port to survive, got %d", config.API.Port)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("NEMESIS_CLUSTER_NAME", "env-cluster")
	os.Setenv("NEMESIS_CLUSTER_SERVICE", "cassandra")
	os.Setenv("NEMESIS_INTERVAL_MINUTES", "7")
	os.Setenv("NEMESIS_STRATEGY", "drainer")
	os.Setenv("NEMESIS_API_PORT", "9090")
	os.Setenv("NEMESIS_LOG_LEVEL", "error")

	defer func() {
		os.Unsetenv("NEMESIS_CLUSTER_NAME")
		os.Unsetenv("NEMESIS_CLUSTER_SERVICE")
		os.Unsetenv("NEMESIS_INTERVAL_MINUTES")
		os.Unsetenv("NEMESIS_STRATEGY")
		os.Unsetenv("NEMESIS_API_PORT")
		os.Unsetenv("NEMESIS_LOG_LEVEL")
	}()

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Cluster.Name != "env-cluster" {
		t.Errorf("Expected cluster name to be env-cluster, got %s", config.Cluster.Name)
	}

	if config.Cluster.ServiceName != "cassandra" {
		t.Errorf("Expected service name to be cassandra, got %s", config.Cluster.ServiceName)
	}

	if config.Nemesis.IntervalMinutes != 7 {
		t.Errorf("Expected interval to be 7 minutes, got %d", config.Nemesis.IntervalMinutes)
	}

	if config.Nemesis.Strategy != "drainer" {
		t.Errorf("Expected strategy to be drainer, got %s", config.Nemesis.Strategy)
	}

	if config.API.Port != 9090 {
		t.Errorf("Expected API port to be 9090, got %d", config.API.Port)
	}

	if config.Logging.Level != "error" {
		t.Errorf("Expected log level to be error, got %s", config.Logging.Level)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		configFunc  func() *Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid default config",
			configFunc:  DefaultConfig,
			expectError: false,
		},
		{
			name: "zero interval",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Nemesis.IntervalMinutes = 0
				return c
			},
			expectError: true,
			errorMsg:    "interval must be positive",
		},
		{
			name: "negative interval",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Nemesis.IntervalMinutes = -10
				return c
			},
			expectError: true,
			errorMsg:    "interval must be positive",
		},
		{
			name: "empty service name",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Cluster.ServiceName = ""
				return c
			},
			expectError: true,
			errorMsg:    "service name cannot be empty",
		},
		{
			name: "duplicate node address",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Cluster.Nodes = []NodeConfig{
					{Address: "10.0.0.1", Seed: true},
					{Address: "10.0.0.1"},
				}
				return c
			},
			expectError: true,
			errorMsg:    "duplicate cluster node address",
		},
		{
			name: "spare node marked as seed",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Cluster.SpareNodes = []NodeConfig{{Address: "10.0.0.9", Seed: true}}
				return c
			},
			expectError: true,
			errorMsg:    "cannot be a seed",
		},
		{
			name: "spare node reuses cluster address",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Cluster.Nodes = []NodeConfig{{Address: "10.0.0.1", Seed: true}}
				c.Cluster.SpareNodes = []NodeConfig{{Address: "10.0.0.1"}}
				return c
			},
			expectError: true,
			errorMsg:    "already in cluster",
		},
		{
			name: "invalid SSH port",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Cluster.SSH.Port = 70000
				return c
			},
			expectError: true,
			errorMsg:    "invalid SSH port",
		},
		{
			name: "workload write ratio out of range",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Workload.Enabled = true
				c.Workload.WriteRatio = 1.5
				return c
			},
			expectError: true,
			errorMsg:    "write ratio",
		},
		{
			name: "disabled workload skips workload validation",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Workload.Enabled = false
				c.Workload.WriteRatio = 1.5
				return c
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			configFunc: func() *Config {
				c := DefaultConfig()
				c.Logging.Level = "verbose"
				return c
			},
			expectError: true,
			errorMsg:    "invalid logging level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.configFunc().Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no validation error, got %v", err)
			}
		})
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.toml")
	if err := os.WriteFile(configFile, []byte("interval = 5"), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	if _, err := Load(configFile); err == nil {
		t.Error("Expected error for unsupported config format")
	}
}
