// Package config loads the coordinator's configuration from environment
// variables (and, optionally, a YAML file), following the viper-based
// pattern used elsewhere in the retrieval pack for daemon configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete coordinator configuration.
type Config struct {
	API                 APIConfig
	Store               StoreConfig
	Blob                BlobConfig
	Worker              WorkerConfig
	Log                 LogConfig
	VerificationSoftware VerificationSoftwareConfig
}

// APIConfig configures the RPC HTTP server.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// StoreConfig configures the pebble-backed document store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// BlobConfig configures the object-storage client.
type BlobConfig struct {
	DefaultBucket string `mapstructure:"default_bucket"`
}

// WorkerConfig configures the worker pool and the timing constants from
// spec.md §4.2/§9.
type WorkerConfig struct {
	SSHUser            string        `mapstructure:"ssh_user"`
	SSHKeyPath         string        `mapstructure:"ssh_key_path"`
	SettleInterval     time.Duration `mapstructure:"settle_interval"`
	TranscriptSettle   time.Duration `mapstructure:"transcript_settle_interval"`
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout"`
	CommandPollTimeout time.Duration `mapstructure:"command_poll_timeout"`
}

// LogConfig configures the log package.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// VerificationSoftwareConfig mirrors the three environment variables
// spec.md §6 marks as fatal-if-absent for the Verifier.
type VerificationSoftwareConfig struct {
	Name       string `mapstructure:"name"`
	Version    string `mapstructure:"version"`
	CommitHash string `mapstructure:"commit_hash"`
}

// Validate reports the first missing required field, following spec.md
// §6: absence of any verification-software env var is fatal to the
// Verifier.
func (c VerificationSoftwareConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("config: CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_NAME is required")
	case c.Version == "":
		return fmt.Errorf("config: CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_VERSION is required")
	case c.CommitHash == "":
		return fmt.Errorf("config: CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_COMMIT_HASH is required")
	}
	return nil
}

// Load reads configuration from environment variables, optionally
// overlaying a YAML file at configPath (empty to skip). Environment
// variables always take precedence, following
// shared-publisher-leader-app/config's AutomaticEnv + key-replacer setup.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	bindEnv(v)

	cfg := &Config{
		API: APIConfig{
			ListenAddr: v.GetString("api.listen_addr"),
			JWTSecret:  v.GetString("api.jwt_secret"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		Blob: BlobConfig{
			DefaultBucket: v.GetString("blob.default_bucket"),
		},
		Worker: WorkerConfig{
			SSHUser:            v.GetString("worker.ssh_user"),
			SSHKeyPath:         v.GetString("worker.ssh_key_path"),
			SettleInterval:     v.GetDuration("worker.settle_interval"),
			TranscriptSettle:   v.GetDuration("worker.transcript_settle_interval"),
			ProbeTimeout:       v.GetDuration("worker.probe_timeout"),
			CommandPollTimeout: v.GetDuration("worker.command_poll_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Output: v.GetString("log.output"),
		},
		VerificationSoftware: VerificationSoftwareConfig{
			Name:       v.GetString("custom_contribution_verification_software_name"),
			Version:    v.GetString("custom_contribution_verification_software_version"),
			CommitHash: v.GetString("custom_contribution_verification_software_commit_hash"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_addr", "0.0.0.0:8080")
	v.SetDefault("store.path", "./data/ceremony.db")
	v.SetDefault("blob.default_bucket", "")
	v.SetDefault("worker.settle_interval", 200*time.Second)
	v.SetDefault("worker.transcript_settle_interval", 3*time.Second)
	v.SetDefault("worker.probe_timeout", 5*time.Second)
	v.SetDefault("worker.command_poll_timeout", 55*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stderr")
}

// bindEnv wires the flat CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_* names
// from spec.md §6 to the flat config keys Load reads.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("custom_contribution_verification_software_name", "CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_NAME")
	_ = v.BindEnv("custom_contribution_verification_software_version", "CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_VERSION")
	_ = v.BindEnv("custom_contribution_verification_software_commit_hash", "CUSTOM_CONTRIBUTION_VERIFICATION_SOFTWARE_COMMIT_HASH")
}
