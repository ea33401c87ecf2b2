package main

import (
	"github.com/spf13/cobra"

	"github.com/buildsys/brick-api/errors"
	"github.com/buildsys/brick-api/generator"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a Brick model from a building layout",
	Long: `Read a building layout (YAML or JSON: building_name, area, floors, ahus with
feeds_vavs and fed_by, chiller) and write the Brick model as Turtle. Each VAV
gets a room and an HVAC zone; AHUs, VAVs and the chiller get the standard
point templates.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("layout", "c", "", "Layout file (YAML or JSON)")
	generateCmd.Flags().StringP("output", "o", "", "Turtle file to write (default <building_name>.ttl, - for stdout)")
	generateCmd.Flags().String("base-uri", "", "Namespace root of entity IRIs")
	_ = generateCmd.MarkFlagRequired("layout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	layoutPath, _ := cmd.Flags().GetString("layout")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(cmd, map[string]string{"graph.base_uri": "base-uri"})
	if err != nil {
		return err
	}
	prog := NewProgress(cmd.ErrOrStderr(), output == "-")

	layout, err := generator.LoadLayout(layoutPath)
	if err != nil {
		return err
	}
	g := generator.Generate(layout, cfg.Graph.BaseURI)
	prog.Log("Generated %s: %d floors, %d AHUs, %d triples",
		layout.BuildingName, len(layout.Floors), len(layout.AHUs), g.Len())

	if output == "-" {
		return generator.WriteTurtle(cmd.OutOrStdout(), g)
	}
	if output == "" {
		output = layout.BuildingName + ".ttl"
	}
	if err := generator.WriteFile(output, g); err != nil {
		return errors.Wrapf(err, "write %s", output)
	}
	prog.Log("Wrote %s", output)
	return nil
}
