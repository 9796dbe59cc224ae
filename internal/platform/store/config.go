package store

import (
	"time"

	"murmur/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG  PGConfig
	CH  CHConfig
	RDS RedisConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// boot guardrails
	ConnectRetries int
	PingTimeout    time.Duration

	// TxRetries is how many times Tx reruns fn on serialization failures
	TxRetries int

	StatementTimeout time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientRole string
	ClientTag  string
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// FromConfig reads backend settings using the SERVICE_PGSQL_, SERVICE_CH_ and SERVICE_REDIS_ prefixes
func FromConfig(cfg config.Conf, appName string) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	ch := cfg.Prefix("SERVICE_CH_")
	rd := cfg.Prefix("SERVICE_REDIS_")

	pgURL := pg.MayString("URL", "")
	chURL := ch.MayString("URL", "")
	rdAddr := rd.MayString("ADDR", "")

	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:          pgURL != "",
			URL:              pgURL,
			MaxConns:         int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:           pg.MayBool("LOG_SQL", false),
			SlowQueryMs:      pg.MayInt("SLOW_MS", 250),
			ConnectRetries:   pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:      pg.MayDuration("PING_TIMEOUT", 3*time.Second),
			TxRetries:        pg.MayInt("TX_RETRIES", 3),
			StatementTimeout: pg.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientRole: appName,
			ClientTag:  ch.MayString("CLIENT_TAG", "dev"),
		},
		RDS: RedisConfig{
			Enabled:  rdAddr != "",
			Addr:     rdAddr,
			Password: rd.MayString("PASSWORD", ""),
			DB:       rd.MayInt("DB", 0),
		},
	}
}
