package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookshelf/internal/importer"
	"bookshelf/internal/library"
	"bookshelf/internal/models"
	"bookshelf/internal/period"
)

func newImportCmd(r *runner) *cobra.Command {
	cfg := importer.DefaultImportConfig()

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import books from an Excel or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			return r.withLibrary(cmd, func(lib *library.Service) error {
				result, err := importer.ImportBooks(cmd.Context(), lib, r.user, cfg)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printf(out, "Processed %d rows: %d created, %d skipped\n", result.TotalProcessed, result.Created, result.Skipped)
				for _, e := range result.Errors {
					printf(out, "  %s\n", e)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "Sheet to import, the first sheet when empty")
	flags.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "First row to import (1-based)")
	flags.StringVar(&cfg.TitleColumn, "title-col", cfg.TitleColumn, "Column holding the title")
	flags.StringVar(&cfg.AuthorColumn, "author-col", cfg.AuthorColumn, "Column holding the author")
	flags.StringVar(&cfg.TotalPagesColumn, "pages-col", cfg.TotalPagesColumn, "Column holding the page count")
	flags.StringVar(&cfg.StatusColumn, "status-col", cfg.StatusColumn, "Column holding the status")
	return cmd
}

func newBooksCmd(r *runner) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "books",
		Short: "List books on the shelf",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := models.BookStatus(strings.ToLower(status))
			if s != "" && !s.Valid() {
				return fmt.Errorf("unknown status %q (expected unread, reading or completed)", status)
			}
			return r.withLibrary(cmd, func(lib *library.Service) error {
				books, err := lib.ListBooks(cmd.Context(), r.user, s)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(books) == 0 {
					printf(out, "No books found.\n")
					return nil
				}
				for _, b := range books {
					printf(out, "%s\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Status, b.Title, b.Author, b.ReadPages, b.TotalPages)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list books with this status")
	return cmd
}

func newGoalsCmd(r *runner) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show goal progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withLibrary(cmd, func(lib *library.Service) error {
				goals, err := lib.ListGoals(cmd.Context(), r.user, !all)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(goals) == 0 {
					printf(out, "No goals found.\n")
					return nil
				}
				for _, g := range goals {
					state := ""
					if !g.Goal.IsActive {
						state = " (inactive)"
					}
					printf(out, "%s%s: %d/%d %s %s, %d%%\n",
						g.Goal.Title, state, g.Progress.Progress, g.Goal.TargetValue,
						g.Goal.Type, g.Goal.Period, g.Progress.Percentage)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include inactive goals")
	return cmd
}

func newChartCmd(r *runner) *cobra.Command {
	var periodFlag string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print pages read per day, week or month",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := period.Parse(periodFlag)
			if !ok {
				return fmt.Errorf("unknown period %q (expected daily, weekly or monthly)", periodFlag)
			}
			return r.withLibrary(cmd, func(lib *library.Service) error {
				points, err := lib.Chart(cmd.Context(), r.user, p)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(points) == 0 {
					printf(out, "Nothing read yet.\n")
					return nil
				}
				for _, point := range points {
					printf(out, "%s\t%d\n", point.Label, point.Value)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&periodFlag, "period", "p", string(models.Daily), "daily, weekly or monthly")
	return cmd
}
