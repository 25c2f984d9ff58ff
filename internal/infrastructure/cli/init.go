package cli

import (
	"fmt"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
	"github.com/felixgeelhaar/auditor/pkg/storage"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an .auditor workspace with the default rubric",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(root)
		if repo.IsInitialized() && !initForce {
			return NewCLIError("workspace already initialized", "Pass --force to overwrite rubric.yaml and ai.yaml", nil)
		}

		if err := repo.Initialize(); err != nil {
			return err
		}
		if err := repo.SaveRubric(rubric.Default()); err != nil {
			return fmt.Errorf("failed to write rubric: %w", err)
		}
		if err := config.SaveAIConfig(root, config.DefaultAIConfig()); err != nil {
			return fmt.Errorf("failed to write ai config: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Initialized auditor workspace in %s/%s\n", root, storage.AuditorDir)
		_, _ = fmt.Fprintf(out, "  %s  %d criteria\n", storage.RubricFile, len(rubric.Default().Dimensions))
		_, _ = fmt.Fprintf(out, "  %s\n", config.AIConfigFile)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing workspace configuration")
	RootCmd.AddCommand(initCmd)
}
