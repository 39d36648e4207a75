package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Redis       *RedisConfig
	Postgres    *PostgresConfig
	Identity    *IdentityConfig
	Media       *MediaConfig
	Sync        *SyncConfig
	Logger      *LoggerConfig
	Tracer      *TracerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// IdentityConfig points at the external identity provider that owns
// authentication and user profiles.
type IdentityConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MediaConfig carries the attachment limits. AllowedTypes is the full MIME
// allow-list; anything outside it is rejected before storage is touched.
type MediaConfig struct {
	AllowedTypes []string
	MaxBytes     int64
}

// SyncConfig controls the per-conversation reconciliation loop and the
// presence anti-entropy broadcast.
type SyncConfig struct {
	TickInterval     time.Duration
	SnapshotInterval time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}
