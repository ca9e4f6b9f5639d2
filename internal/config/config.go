// Package config wires viper-backed configuration for edmap. Defaults are
// set first, then an optional edmap.cfg.json from the config directory, with
// flags and EDMAP_* environment variables layered on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JYF/edmap/internal/index"

	"github.com/spf13/viper"
)

// Load sets default values and reads the optional configuration file.
// configDir is the directory containing the config file; a missing file is
// not an error, a malformed one is.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("systemsFile", "./systems.jsonl")
	viper.SetDefault("stationsFile", "./stations.csv")
	viper.SetDefault("outputFile", "./markers.json")
	viper.SetDefault("output.compress", false)

	viper.SetDefault("index.backend", index.BackendSQLite)
	viper.SetDefault("index.path", "./systems.db")
	viper.SetDefault("index.batchSize", index.DefaultBatchSize)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "edmap")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "edmap-metrics")
	viper.SetDefault("influx.bucket", "edmap_runs")
	viper.SetDefault("influx.backupPath", "./edmap_metrics.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("report.unmatchedLimit", 50)

	viper.SetConfigName("edmap.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	viper.SetEnvPrefix("edmap")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// IndexConfig assembles the index store configuration.
func IndexConfig() index.Config {
	return index.Config{
		Backend:   viper.GetString("index.backend"),
		Path:      viper.GetString("index.path"),
		BatchSize: viper.GetInt("index.batchSize"),
		Postgres: index.PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
