package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildsys/brick-api/brick"
	"github.com/buildsys/brick-api/errors"
)

var queryCmd = &cobra.Command{
	Use:   "query [query]",
	Short: "Run one query against the configured graph",
	Long: `Load the configured graph (or snapshot) and run a single SELECT or ASK
query. The query comes from the argument, from --file, or from stdin when
neither is given. Results print as the JSON the /api/v1/query route returns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringP("file", "f", "", "Read the query from a file")
	queryCmd.Flags().StringSlice("files", nil, "Graph files to load, overrides graph.files")
	queryCmd.Flags().String("snapshot", "", "Query a snapshot written by compile")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"graph.files":    "files",
		"graph.snapshot": "snapshot",
	})
	if err != nil {
		return err
	}
	text, err := queryText(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := brick.New(ctx, cfg.Graph)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.ExecuteRawQuery(ctx, text)
	if err != nil {
		return errors.Wrap(err, "query error")
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func queryText(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case len(args) == 1 && file != "":
		return "", errors.Wrap(errors.ErrInvalidRequest, "give the query as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", errors.Wrapf(err, "read query %s", file)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Wrap(err, "read query from stdin")
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.Wrap(errors.ErrInvalidRequest, "empty query")
	}
	return string(data), nil
}
