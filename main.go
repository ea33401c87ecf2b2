package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buildsys/brick-api/config"
	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "brick-api",
	Short: "Brick building ontology API",
	Long: `brick-api serves building, floor, device and point data from Brick
ontology graphs over HTTP.

Available commands:
  serve     - Load the configured graph files and start the HTTP API
  compile   - Load graph files once and write a SQLite snapshot
  generate  - Generate a Brick model from a building layout
  query     - Run one query against the configured graph

Examples:
  brick-api serve --port 8000
  brick-api compile -o graph.db
  brick-api generate -c assets/layouts/office_building_2.yaml -o office_building_2.ttl
  brick-api query 'SELECT ?b WHERE { ?b a brick:Building }'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.NewViper(configPath)
		if err != nil {
			return err
		}
		if err := bindFlags(v, cmd, map[string]string{
			"log.json":  "json-logs",
			"log.level": "log-level",
		}); err != nil {
			return err
		}
		if err := logger.Initialize(v.GetBool("log.json"), v.GetString("log.level")); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default ./"+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(queryCmd)
}

// loadConfig merges defaults, the config file, BRICK_* variables and the
// command's own flags.
func loadConfig(cmd *cobra.Command, flags map[string]string) (*config.Config, error) {
	v, err := config.NewViper(configPath)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd, flags); err != nil {
		return nil, err
	}
	return config.FromViper(v)
}

// bindFlags maps config keys to flag names on cmd. Only flags the user set
// override the file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command, flags map[string]string) error {
	for key, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return errors.Newf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		logger.Cleanup()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
