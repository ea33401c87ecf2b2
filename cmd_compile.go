package main

import (
	"github.com/spf13/cobra"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/errors"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Load graph files and write a SQLite snapshot",
	Long: `Parse the configured graph files once and write the resulting store to a
SQLite file. "serve --snapshot" opens it without parsing Turtle again.`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringP("output", "o", "graph.db", "Snapshot file to write")
	compileCmd.Flags().StringSlice("files", nil, "Graph files to load, overrides graph.files")
	compileCmd.Flags().String("schema", "", "Brick schema file replacing the embedded one")
	compileCmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"graph.files":       "files",
		"graph.schema_file": "schema",
	})
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	quiet, _ := cmd.Flags().GetBool("quiet")
	prog := NewProgress(cmd.ErrOrStderr(), quiet)
	ctx := cmd.Context()

	// compile always parses; a configured snapshot is the thing being replaced
	graphCfg := cfg.Graph
	graphCfg.Snapshot = ""
	if len(graphCfg.Files) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "no graph files to compile")
	}

	prog.Log("Loading %d files", len(graphCfg.Files))
	svc, err := brick.New(ctx, graphCfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.TripleCount(ctx)
	if err != nil {
		return err
	}
	prog.Log("Loaded %d triples", n)

	if err := svc.ExportSnapshot(ctx, output); err != nil {
		return errors.Wrapf(err, "write snapshot %s", output)
	}
	prog.Log("Wrote %s", output)
	return nil
}
