package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Script   ScriptConfig   `mapstructure:"script"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type DataConfig struct {
	DataPath      string        `mapstructure:"data_path"` // Actors.json, Skills.json, ...
	GameDir       string        `mapstructure:"game_dir"`  // Battle/, Sound/, ...
	RTPPaths      []string      `mapstructure:"rtp_paths"`
	AssetCacheTTL time.Duration `mapstructure:"asset_cache_ttl"`
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
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// BattleConfig holds pacing and rule options for the battle engine.
// All wait values are in frames.
type BattleConfig struct {
	Engine                string        `mapstructure:"engine"` // rpg2k | rpg2k3
	FPS                   int           `mapstructure:"fps"`
	ActionWait            int           `mapstructure:"action_wait"`
	EscapeWait            int           `mapstructure:"escape_wait"`
	TargetFlashInterval   int           `mapstructure:"target_flash_interval"`
	EncounterShortWait    int           `mapstructure:"encounter_short_wait"`
	EncounterLongWait     int           `mapstructure:"encounter_long_wait"`
	LegacySPDamageMessage bool          `mapstructure:"legacy_sp_damage_message"`
	MaxSimulationTicks    int           `mapstructure:"max_simulation_ticks"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
}

// ScriptConfig controls the JavaScript battle hook scripts.
type ScriptConfig struct {
	Dir        string        `mapstructure:"dir"` // empty = no scripts
	VMPoolSize int           `mapstructure:"vm_pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SecurityConfig struct {
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // WebSocket; empty = any
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
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
	v.SetDefault("data.data_path", "./data")
	v.SetDefault("data.game_dir", "./game")
	v.SetDefault("data.rtp_paths", []string{})
	v.SetDefault("data.asset_cache_ttl", "1h")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/battles.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("battle.engine", "rpg2k")
	v.SetDefault("battle.fps", 60)
	v.SetDefault("battle.action_wait", 30)
	v.SetDefault("battle.escape_wait", 60)
	v.SetDefault("battle.target_flash_interval", 60)
	v.SetDefault("battle.encounter_short_wait", 6)
	v.SetDefault("battle.encounter_long_wait", 30)
	v.SetDefault("battle.legacy_sp_damage_message", true)
	v.SetDefault("battle.max_simulation_ticks", 200000)
	v.SetDefault("battle.session_ttl", "10m")
	v.SetDefault("script.dir", "")
	v.SetDefault("script.vm_pool_size", 4)
	v.SetDefault("script.timeout", "500ms")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}
