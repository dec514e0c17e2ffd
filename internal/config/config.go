// Package config loads node configuration from a YAML file plus
// environment overrides, following the teacher's viper-based LoadConfig
// convention. The option set is §6's enumerated list plus the two
// transport knobs (grpc, rate_limit) the domain-stack expansion adds and
// the metrics server's metrics_addr.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RaftPeer is one entry of the raft_peers list: a Raft server id
// mapped to its transport address and, separately, the gRPC address a
// follower forwards state-changing RPCs to once that peer becomes
// leader.
type RaftPeer struct {
	ID          string `mapstructure:"id"`
	Address     string `mapstructure:"address"`
	GRPCAddress string `mapstructure:"grpc_address"`
}

// GRPCConfig holds the gRPC transport knobs.
type GRPCConfig struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	MaxRecvMsgSize int    `mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize int    `mapstructure:"max_send_msg_size"`
}

// RateLimitConfig holds the inbound RPC throttling knob (D8).
type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Rate    string `mapstructure:"rate"` // ulule/limiter formatted rate, e.g. "50-S"
}

// Config is the full set of options recognized by a node, per §6.
type Config struct {
	NodeID                  string          `mapstructure:"node_id"`
	RaftPeers               []RaftPeer      `mapstructure:"raft_peers"`
	ListenAddr              string          `mapstructure:"listen_addr"`
	DataDir                 string          `mapstructure:"data_dir"`
	SnapshotIntervalEntries int             `mapstructure:"snapshot_interval_entries"`
	TradeSinkURL            string          `mapstructure:"trade_sink_url"`
	LogLevel                string          `mapstructure:"log_level"`
	HistoryRetention        int             `mapstructure:"history_retention"`
	MetricsAddr             string          `mapstructure:"metrics_addr"`
	GRPC                    GRPCConfig      `mapstructure:"grpc"`
	RateLimit               RateLimitConfig `mapstructure:"rate_limit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "0.0.0.0:7400")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("snapshot_interval_entries", 10000)
	v.SetDefault("log_level", "info")
	v.SetDefault("history_retention", 100000)
	v.SetDefault("metrics_addr", "0.0.0.0:9090")
	v.SetDefault("grpc.listen_addr", "0.0.0.0:7500")
	v.SetDefault("grpc.max_recv_msg_size", 4*1024*1024)
	v.SetDefault("grpc.max_send_msg_size", 4*1024*1024)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rate", "200-S")
}

// Load reads configuration from configPath (a YAML file), falling back
// to defaults for anything not set there or via a TRADSYS_-prefixed
// environment variable.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("TRADSYS")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the engine depends on at startup.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.SnapshotIntervalEntries <= 0 {
		return fmt.Errorf("snapshot_interval_entries must be positive")
	}
	return nil
}
