package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/database"
	"github.com/aquasafe/aquasafe/pkg/ingest"
	"github.com/aquasafe/aquasafe/pkg/models"
	"github.com/aquasafe/aquasafe/pkg/repository"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import samples from a groundwater survey CSV",
	Long: `Import rows of a groundwater quality survey CSV as water samples.
Metal concentrations are derived from the survey's Fe, As, U and Mg columns
and every row is scored like any other sample.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("file", "f", "", "path to the survey CSV")
	importCmd.Flags().Int("limit", ingest.DefaultLimit, "maximum number of rows to import (0 for all)")
	importCmd.Flags().String("collector", "", "username recorded as the collector of every sample")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("collector")
}

func runImport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	limit, _ := cmd.Flags().GetInt("limit")
	collector, _ := cmd.Flags().GetString("collector")

	logger := zap.L()
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	user, err := store.GetUserByUsername(ctx, collector)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return fmt.Errorf("collector %q does not exist; create it with 'aquasafe user create'", collector)
		}
		return err
	}

	repo := repository.New(store, cfg.Access.Policy(), repository.WithLogger(logger))
	result, err := ingest.NewImporter(repo, logger).Import(ctx, f, user.ID, limit)
	if result != nil {
		printImportResult(result)
	}
	if err != nil {
		return fmt.Errorf("import stopped: %w", err)
	}
	return nil
}

func printImportResult(result *ingest.Result) {
	fmt.Printf("Imported %d samples\n", result.Imported)

	statuses := make([]string, 0, len(result.ByStatus))
	for s := range result.ByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Printf("  %-9s %d\n", s, result.ByStatus[models.Status(s)])
	}

	if len(result.Skipped) > 0 {
		fmt.Printf("Skipped %d rows:\n", len(result.Skipped))
		for _, re := range result.Skipped {
			fmt.Printf("  %s\n", re.Error())
		}
	}
}
