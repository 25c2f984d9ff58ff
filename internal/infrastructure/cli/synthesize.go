package cli

import (
	"encoding/json"
	"log/slog"

	"github.com/felixgeelhaar/auditor/pkg/application"
	"github.com/felixgeelhaar/auditor/pkg/domain/synthesis"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	synthJSON   bool
	synthNoSave bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <bundle.json>",
	Short: "Render a verdict from recorded evidence and opinions without calling a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)
		engine := synthesis.NewEngine(synthesis.DefaultConfig(), slog.Default())

		rep, err := application.SynthesizeFromFile(args[0], engine, workspaceRubric(repo))
		if err != nil {
			return MapError(err)
		}
		if !synthNoSave {
			if err := repo.Initialize(); err != nil {
				return err
			}
			if err := repo.SaveReport(rep); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if synthJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		printReport(out, rep)
		return nil
	},
}

func init() {
	synthesizeCmd.Flags().BoolVar(&synthJSON, "json", false, "Output in JSON format")
	synthesizeCmd.Flags().BoolVar(&synthNoSave, "no-save", false, "Do not write the report into the workspace")
	RootCmd.AddCommand(synthesizeCmd)
}
