package fakeprod

// Config holds the configuration settings for the service.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// DataFolder holds mocks.json and the mock_data directory for
	// file-backed mocks.
	DataFolder string `mapstructure:"data_folder"`

	// UsersCSV is an optional CSV file the user store is seeded from at
	// startup. The first row names the attributes.
	UsersCSV string `mapstructure:"users_csv"`

	// InspectLimit caps how many recent requests /inspect returns.
	InspectLimit int `mapstructure:"inspect_limit"`
}

var globalConfig Config

func init() {
	globalConfig = Config{
		ListenAddr:   "0.0.0.0:8080",
		DataFolder:   "./data",
		UsersCSV:     "",
		InspectLimit: 50,
	}
}

// Configure replaces the global configuration. Call before RunServer.
func Configure(cfg Config) {
	if cfg.InspectLimit <= 0 {
		cfg.InspectLimit = 50
	}
	globalConfig = cfg
}

// GlobalConfig returns the current global configuration.
func GlobalConfig() Config {
	return globalConfig
}
