// Package cli implements bookshelfctl, the operator tool for importing books and
// inspecting goals and charts without going through Telegram.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bookshelf/internal/app"
	"bookshelf/internal/config"
	"bookshelf/internal/library"
)

// Opener connects to the library. The returned func releases it.
type Opener func(ctx context.Context) (*library.Service, func() error, error)

// EnvOpener opens the storage and display settings from the environment
func EnvOpener(ctx context.Context) (*library.Service, func() error, error) {
	_ = godotenv.Load()

	storageCfg, err := config.LoadStorageFromEnv()
	if err != nil {
		return nil, nil, err
	}
	display, err := config.LoadDisplayFromEnv()
	if err != nil {
		return nil, nil, err
	}

	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "warn"
	}
	logger, err := app.NewLogger(level)
	if err != nil {
		return nil, nil, err
	}

	db, err := app.OpenStorage(ctx, *storageCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app.NewLibrary(db, *display, logger), db.Close, nil
}

type runner struct {
	open Opener
	user string
}

// withLibrary opens the library for the duration of fn
func (r *runner) withLibrary(cmd *cobra.Command, fn func(lib *library.Service) error) error {
	if strings.TrimSpace(r.user) == "" {
		return fmt.Errorf("--user is required")
	}
	lib, closeFn, err := r.open(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(lib)
}

// NewRootCmd builds the command tree around open
func NewRootCmd(open Opener) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "bookshelfctl",
		Short:         "bookshelfctl manages a bookshelf from your terminal",
		Long:          "bookshelfctl imports books from spreadsheets and prints goal progress and reading charts for a Telegram user.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&r.user, "user", "u", "", "Telegram user ID")

	root.AddCommand(
		newImportCmd(r),
		newBooksCmd(r),
		newGoalsCmd(r),
		newChartCmd(r),
	)
	return root
}

// Execute runs bookshelfctl with the environment opener
func Execute() {
	root := NewRootCmd(EnvOpener)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
