package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tomhaynes/fakeprod"
)

func init() {
	// Bind command-line flags
	pflag.String("config", "", "Path to the configuration file")
	pflag.String("listen-addr", "0.0.0.0:8080", "Host and port for the mock API server")
	pflag.String("data-folder", "./data", "Path to the data folder for file-backed mocks")
	pflag.String("users-csv", "", "CSV file to seed the user store from")
	pflag.Int("inspect-limit", 50, "How many recent requests /inspect returns")

	f := pflag.CommandLine
	normalizeFunc := f.GetNormalizeFunc()
	f.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		result := normalizeFunc(fs, name)
		name = strings.ReplaceAll(string(result), "-", "_")
		return pflag.NormalizedName(name)
	})
}

// LoadConfig merges defaults, an optional config file, environment variables
// and command-line flags into the global configuration.
func LoadConfig() error {
	// Set default values
	viper.SetDefault("listen_addr", "0.0.0.0:8080")
	viper.SetDefault("data_folder", "./data")
	viper.SetDefault("users_csv", "")
	viper.SetDefault("inspect_limit", 50)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Parse command-line flags
	pflag.Parse()

	// Bind command-line flags to Viper
	viper.BindPFlags(pflag.CommandLine)

	// Bind environment variables
	viper.AutomaticEnv()

	// Read configuration file if specified
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("fakeprod.conf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Using defaults and command line/environment options\n     (%v)\n", err)
	}

	// Unmarshal configuration into struct
	var cfg fakeprod.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unable to decode into struct, %v", err)
	}

	// Ensure the data folder exists
	dataFolder := viper.GetString("data_folder")
	if _, err := os.Stat(dataFolder); os.IsNotExist(err) {
		if err := os.MkdirAll(dataFolder, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create data folder: %v", err)
		}
	}

	// Assign the loaded configuration to the global variable
	fakeprod.Configure(cfg)

	return nil
}
