// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info" envDocs:"logrus level name"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" envDocs:"text or json"`

	AdminAddr      string `env:"ADMIN_ADDR"      envDefault:":8080" envDocs:"listen address of the admin and metrics endpoint"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT" envDefault:""      envDocs:"zipkin collector url (empty disables span export)"`
	ServiceName    string `env:"SERVICE_NAME"    envDefault:"match-watcher"`

	RecoveryPath string `env:"RECOVERY_PATH" envDefault:"data/watchers.db" envDocs:"bbolt file holding watcher dumps across restarts"`
	StorePath    string `env:"STORE_PATH"    envDefault:""                 envDocs:"yaml file seeding subscriptions, switches and fids (empty means none)"`

	GracePeriod     time.Duration `env:"GRACE_PERIOD"     envDefault:"15s" envDocs:"time a terminal watcher stays registered before recycling"`
	RecycleInterval time.Duration `env:"RECYCLE_INTERVAL" envDefault:"15m" envDocs:"registry sweep interval"`
	RestoreMaxAge   time.Duration `env:"RESTORE_MAX_AGE"  envDefault:"6h"  envDocs:"dumps whose watcher started earlier than this are not restored"`

	Majsoul    MajsoulConfig    `envPrefix:"MAJSOUL_"`
	Tenhou     TenhouConfig     `envPrefix:"TENHOU_"`
	RiichiCity RiichiCityConfig `envPrefix:"RIICHI_CITY_"`
}

// ProviderConfig holds the discovery settings every provider shares.
type ProviderConfig struct {
	Enabled         bool          `env:"ENABLED"            envDefault:"true"`
	UpdateInterval  time.Duration `env:"UPDATE_INTERVAL"    envDefault:"90s"  envDocs:"discovery interval (0 disables scheduled discovery)"`
	MatchExpireTime time.Duration `env:"MATCH_EXPIRE_TIME"  envDefault:"600s" envDocs:"matches started earlier than this are skipped unless forced"`
	EnableFidFilter bool          `env:"ENABLE_FID_FILTER"  envDefault:"true"`
	DefaultFids     []string      `env:"DEFAULT_FIDS"       envSeparator:","`
}

type MajsoulConfig struct {
	ProviderConfig

	APIBase             string        `env:"API_BASE"              envDefault:"http://127.0.0.1:7236" envDocs:"live game listing, observer token and paipu endpoints"`
	ObURI               string        `env:"OB_URI"                envDefault:"wss://live.maj-soul.com/ob"`
	ReconnectInterval   time.Duration `env:"RECONNECT_INTERVAL"    envDefault:"5s"`
	ReconnectTimes      int           `env:"RECONNECT_TIMES"       envDefault:"10"`
	TokenRetries        int           `env:"TOKEN_RETRIES"         envDefault:"6"`
	TokenRetryInterval  time.Duration `env:"TOKEN_RETRY_INTERVAL"  envDefault:"2s"`
	ResultQueryInterval time.Duration `env:"RESULT_QUERY_INTERVAL" envDefault:"30s"`
	ResultErrorInterval time.Duration `env:"RESULT_ERROR_INTERVAL" envDefault:"60s"`
	UpdateFidsMode      string        `env:"UPDATE_FIDS_MODE"      envDefault:"off" envDocs:"off, all or contest"`
	UpdateFidsInterval  time.Duration `env:"UPDATE_FIDS_INTERVAL"  envDefault:"60s"`
}

type TenhouConfig struct {
	ProviderConfig

	LivelistSource    string        `env:"LIVELIST_SOURCE"    envDefault:"tenhou" envDocs:"tenhou or nodocchi"`
	LivelistURL       string        `env:"LIVELIST_URL"       envDefault:"https://mjv.jp/0/wg/0.js"`
	NodocchiURL       string        `env:"NODOCCHI_URL"       envDefault:"https://nodocchi.moe/s/wg/0.js"`
	ObURI             string        `env:"OB_URI"             envDefault:"wss://b-ww.mjv.jp/"`
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL" envDefault:"20s"`
	ReconnectTimes    int           `env:"RECONNECT_TIMES"    envDefault:"5"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"3s"`
}

type RiichiCityConfig struct {
	ProviderConfig

	APIBase       string        `env:"API_BASE"       envDefault:"http://127.0.0.1:7237"`
	QueryInterval time.Duration `env:"QUERY_INTERVAL" envDefault:"10s"`
	QueryMaxTimes int           `env:"QUERY_MAX_TIMES" envDefault:"100" envDocs:"idle polls tolerated before the watcher closes"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
