package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Daevanion DaevanionConfig `mapstructure:"daevanion"`
	Power     PowerConfig     `mapstructure:"power"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	CharacterTTL    time.Duration `mapstructure:"character_ttl"`
	CompareTTL      time.Duration `mapstructure:"compare_ttl"`
}

// UpstreamConfig points at the AION2 character API.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Lang           string        `mapstructure:"lang"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type DaevanionConfig struct {
	ClassMappingPath string `mapstructure:"class_mapping_path"`
	// FlagPolicy is "lastWrite" or "firstWrite".
	FlagPolicy  string `mapstructure:"flag_policy"`
	Concurrency int    `mapstructure:"concurrency"`
}

// PowerConfig overrides the attack power stat name tables. Empty lists keep
// the built-in tables.
type PowerConfig struct {
	EquipmentAttack        []string `mapstructure:"equipment_attack"`
	EquipmentAttackPercent []string `mapstructure:"equipment_attack_percent"`
	DaevanionFlat          []string `mapstructure:"daevanion_flat"`
	Destruction            []string `mapstructure:"destruction"`
	Strength               []string `mapstructure:"strength"`
	SecondaryPercent       []string `mapstructure:"secondary_percent"`
}

type RosterConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	SyncInterval time.Duration  `mapstructure:"sync_interval"`
	MemberDelay  time.Duration  `mapstructure:"member_delay"`
	Members      []MemberConfig `mapstructure:"members"`
}

// MemberConfig seeds one legion member.
type MemberConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Role        string `mapstructure:"role"`
	CharacterID string `mapstructure:"character_id"`
	ServerID    int    `mapstructure:"server_id"`
}

type SecurityConfig struct {
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	AdminAllowIPs  []string `mapstructure:"admin_allow_ips"`
	// JWTSecret signs admin session tokens. A random secret is generated at
	// startup when empty, so sessions do not survive a restart.
	JWTSecret  string        `mapstructure:"jwt_secret"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Load reads config from the given YAML file path. Every key can be
// overridden by an environment variable, e.g. LEGION_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("legion")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/legion.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.character_ttl", "8h")
	v.SetDefault("cache.compare_ttl", "4h")
	v.SetDefault("upstream.base_url", "https://tw.ncsoft.com/aion2/api")
	v.SetDefault("upstream.lang", "zh")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.rate_limit_rps", 10)
	v.SetDefault("upstream.rate_limit_burst", 6)
	v.SetDefault("daevanion.class_mapping_path", "./data/class_board_mapping.json")
	v.SetDefault("daevanion.flag_policy", "lastWrite")
	v.SetDefault("daevanion.concurrency", 0)
	v.SetDefault("roster.enabled", true)
	v.SetDefault("roster.sync_interval", "6h")
	v.SetDefault("roster.member_delay", "500ms")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.session_ttl", "12h")
}
