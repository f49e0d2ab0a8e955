package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/invertedv/profile/catalog"
)

var (
	catalogFile string
	verbose     bool

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "acsprofile",
	Short: "Builds ACS profile pages with margins of error",
	Long: `acsprofile evaluates a catalog of indicators against American Community Survey
estimates and their margins of error and writes the profile document as JSON.

Commands:
  check  - compile every formula of the catalog
  build  - build a document from JSON observations and relations
  load   - build a document from a ClickHouse or Postgres database`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "indicator catalog (default: built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadCatalog() (*catalog.Catalog, error) {
	var (
		c *catalog.Catalog
		e error
	)

	if catalogFile == "" {
		c, e = catalog.Default()
	} else {
		c, e = catalog.LoadFile(catalogFile)
	}

	if e != nil {
		return nil, e
	}

	c.SetLogger(logger)

	return c, nil
}

func readJSON(fileName string, v any) error {
	var (
		r io.ReadCloser
		e error
	)

	if fileName == "-" {
		r = io.NopCloser(os.Stdin)
	} else if r, e = os.Open(fileName); e != nil {
		return e
	}
	defer r.Close()

	if e := jsonDecode(r, v); e != nil {
		return fmt.Errorf("%s: %w", fileName, e)
	}

	return nil
}

// envOr returns the environment variable key if def is empty
func envOr(def, key string) string {
	if def != "" {
		return def
	}

	return os.Getenv(key)
}
