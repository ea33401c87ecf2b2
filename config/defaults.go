package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURI is the namespace root of entity IRIs in the sample data.
const DefaultBaseURI = "http://buildsys.org/ontologies"

// DefaultFiles are the sample buildings shipped in assets/.
var DefaultFiles = []string{
	"assets/campus_lab_1.ttl",
	"assets/office_building_1.ttl",
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.cors_origins", []string{
		"http://localhost:3000",
		"http://localhost:8000",
	})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.query_rate_limit", 10.0)
	v.SetDefault("server.query_burst", 20)

	v.SetDefault("graph.base_uri", DefaultBaseURI)
	v.SetDefault("graph.schema_file", "")
	v.SetDefault("graph.files", DefaultFiles)
	v.SetDefault("graph.snapshot", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}
