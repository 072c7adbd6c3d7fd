package config

const (
	defaultConfigPath           = "~/.config/shiptrack/config.toml"
	defaultDataDir              = "~/.local/share/shiptrack"
	defaultLogDir               = "~/.local/share/shiptrack/logs"
	defaultAPIBind              = "127.0.0.1:7590"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultMaxOpenConns         = 10
	defaultNotifyRequestTimeout = 10
	defaultDatabaseDriver       = DriverSQLite
	envConfigPath               = "SHIPTRACK_CONFIG"
	envAPIToken                 = "SHIPTRACK_API_TOKEN"
	envDatabaseDSN              = "SHIPTRACK_DB_DSN"
	envNtfyTopic                = "SHIPTRACK_NTFY_TOPIC"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Database: Database{
			Driver:       defaultDatabaseDriver,
			MaxOpenConns: defaultMaxOpenConns,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCreated:     false,
			StageAdvanced:  true,
			JobCompleted:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
