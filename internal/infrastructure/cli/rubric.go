package cli

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect the grading rubric",
}

var rubricJSON bool

var rubricShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the rubric used by the next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		r := workspaceRubric(storage.NewFilesystemRepository(root))
		if r == nil {
			return NewCLIError("rubric could not be parsed", "Fix .auditor/rubric.yaml or run 'auditor init --force'", nil)
		}

		out := cmd.OutOrStdout()
		if rubricJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		_, _ = fmt.Fprintln(out, headerStyle.Render("Rubric "+r.Version))
		for _, artifact := range []string{rubric.ArtifactRepo, rubric.ArtifactDocument, rubric.ArtifactImages} {
			ids := r.IDsFor(artifact)
			if len(ids) == 0 {
				continue
			}
			_, _ = fmt.Fprintf(out, "\n%s\n", dimStyle.Render(artifact))
			for _, id := range ids {
				_, _ = fmt.Fprintf(out, "  %-32s %s\n", id, r.NameFor(id))
			}
		}
		return nil
	},
}

var rubricValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a rubric file parses and has unique criterion ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRubricFile(args[0])
		if err != nil {
			return NewCLIError("invalid rubric", "Each dimension needs a unique id", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), passStyle.Render(fmt.Sprintf("Rubric OK: %d criteria", len(r.Dimensions))))
		return nil
	},
}

func init() {
	rubricShowCmd.Flags().BoolVar(&rubricJSON, "json", false, "Output in JSON format")
	rubricCmd.AddCommand(rubricShowCmd)
	rubricCmd.AddCommand(rubricValidateCmd)
	RootCmd.AddCommand(rubricCmd)
}
