package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name" env:"APP_NAME"`
	Host     string         `yaml:"host" env:"HOST"`
	Port     int            `yaml:"port" env:"PORT"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
	Stream   MStreamConfig  `yaml:"stream"`
	Storage  MStorageConfig `yaml:"storage"`
	Feed     MFeedConfig    `yaml:"feed"`
}

// MStreamConfig tunes the client-facing streaming path.
type MStreamConfig struct {
	MaxConnections   int `yaml:"max_connections" env:"MAX_CONNECTIONS"`
	HeartbeatSeconds int `yaml:"heartbeat_seconds" env:"HEARTBEAT_SECONDS"`
	CacheBars        int `yaml:"cache_bars" env:"CACHE_BARS"`
	SendBuffer       int `yaml:"send_buffer" env:"SEND_BUFFER"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled" env:"STORAGE_ENABLED"`
	DBType             string `yaml:"db_type" env:"DB_TYPE"`
	DBPath             string `yaml:"db_path" env:"DB_PATH"`
	DBConnectionString string `yaml:"db_connection_string" env:"DB_CONNECTION_STRING"`
}

type MFeedConfig struct {
	Sources []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"` // "binance" or "sim"
	Symbols    []string `yaml:"symbols"`
	URL        string   `yaml:"url"`         // Optional override for websocket sources
	TickMillis int      `yaml:"tick_millis"` // Simulator cadence
}
