package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for decoding config files. Interval fields use
// timex.Duration so both "1m" and integer nanoseconds are accepted.
//
// Zero values are treated as "not set" and leave the corresponding Config
// field untouched.
type FileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHealth           string         `json:"endpoint_addr_health" yaml:"endpoint_addr_health"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	MaxDBConns                   int            `json:"max_db_conns" yaml:"max_db_conns"`
	RedisURL                     string         `json:"redis_url" yaml:"redis_url"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration" yaml:"otp_validity_duration"`
	OTPMaxAttempts               int            `json:"otp_max_attempts" yaml:"otp_max_attempts"`
	UnverifiedUserTTL            timex.Duration `json:"unverified_user_ttl" yaml:"unverified_user_ttl"`
	ThrottleLimit                int            `json:"throttle_limit" yaml:"throttle_limit"`
	ThrottleWindow               timex.Duration `json:"throttle_window" yaml:"throttle_window"`
	ComputePoolSize              int            `json:"compute_pool_size" yaml:"compute_pool_size"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

// ApplyFile overlays the values found in the file at path onto config.
// Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func ApplyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return err
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHealth, c.EndpointAddrHealth)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.MaxDBConns, c.MaxDBConns)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration)
	setInt(&config.OTPMaxAttempts, c.OTPMaxAttempts)
	setDuration(&config.UnverifiedUserTTL, c.UnverifiedUserTTL)
	setInt(&config.ThrottleLimit, c.ThrottleLimit)
	setDuration(&config.ThrottleWindow, c.ThrottleWindow)
	setInt(&config.ComputePoolSize, c.ComputePoolSize)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
