package config

import (
	"github.com/dmitrijs2005/budgetkeeper/internal/flagx"
	"github.com/spf13/pflag"
)

// BindFlags registers every server setting on fs, using the current values
// of c as defaults.
//
//	-a, --grpc-addr            gRPC bind address
//	-l, --health-addr          health probe bind address
//	-d, --dsn                  PostgreSQL DSN
//	-m, --max-db-conns         max open database connections
//	-x, --redis-url            Redis URL for throttle counters
//	-s, --secret               JWT HMAC secret
//	-t, --access-token-ttl     session token lifetime
//	-r, --refresh-token-ttl    refresh token lifetime
//	-o, --otp-ttl              one-time code lifetime
//	-n, --otp-attempts         one-time code guesses per throttle window
//	-u, --unverified-user-ttl  age at which unverified accounts are purged
//	-q, --throttle-limit       budget creations / invitations per window
//	-w, --throttle-window      throttle window
//	-k, --compute-pool         concurrent crypto jobs
//	    --log-level            debug, info, warn or error
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.EndpointAddrGRPC, "grpc-addr", "a", c.EndpointAddrGRPC, "gRPC bind address")
	fs.StringVarP(&c.EndpointAddrHealth, "health-addr", "l", c.EndpointAddrHealth, "health probe bind address")
	fs.StringVarP(&c.DatabaseDSN, "dsn", "d", c.DatabaseDSN, "PostgreSQL DSN")
	fs.IntVarP(&c.MaxDBConns, "max-db-conns", "m", c.MaxDBConns, "max open database connections")
	fs.StringVarP(&c.RedisURL, "redis-url", "x", c.RedisURL, "Redis URL for throttle counters (empty: in-process)")
	fs.StringVarP(&c.SecretKey, "secret", "s", c.SecretKey, "JWT HMAC secret")
	fs.DurationVarP(&c.AccessTokenValidityDuration, "access-token-ttl", "t", c.AccessTokenValidityDuration, "session token lifetime")
	fs.DurationVarP(&c.RefreshTokenValidityDuration, "refresh-token-ttl", "r", c.RefreshTokenValidityDuration, "refresh token lifetime")
	fs.DurationVarP(&c.OTPValidityDuration, "otp-ttl", "o", c.OTPValidityDuration, "one-time code lifetime")
	fs.IntVarP(&c.OTPMaxAttempts, "otp-attempts", "n", c.OTPMaxAttempts, "one-time code guesses per throttle window")
	fs.DurationVarP(&c.UnverifiedUserTTL, "unverified-user-ttl", "u", c.UnverifiedUserTTL, "age at which unverified accounts are purged")
	fs.IntVarP(&c.ThrottleLimit, "throttle-limit", "q", c.ThrottleLimit, "throttled operations per window")
	fs.DurationVarP(&c.ThrottleWindow, "throttle-window", "w", c.ThrottleWindow, "throttle window")
	fs.IntVarP(&c.ComputePoolSize, "compute-pool", "k", c.ComputePoolSize, "concurrent crypto jobs")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// parseFlags overlays command-line flags onto config. Flags owned by other
// components are skipped.
func parseFlags(config *Config, args []string) error {
	fs := flagx.NewLenientSet("server")
	BindFlags(fs, config)
	return fs.Parse(args)
}
