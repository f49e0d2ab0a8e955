package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/invertedv/profile"
	"github.com/invertedv/profile/source"
)

var (
	dialect   string
	host      string
	user      string
	password  string
	dbName    string
	geoid     string
	obsTable  string
	relTable  string
	initTable bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Build a document from a ClickHouse or Postgres database",
	Long: `load reads the relations of --geoid and the observations of every table in the
catalog from the database, then builds the document as build does.

Connection settings not given as flags are taken from the environment variables
host, user, password and db.

With --init the tables are (re)created and filled from --data and --relations first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, e := loadCatalog()
		if e != nil {
			return e
		}

		var d *source.Dialect
		if d, e = source.Connect(dialect, envOr(host, "host"), envOr(user, "user"), envOr(password, "password"),
			envOr(dbName, "db")); e != nil {
			return e
		}
		defer func() { _ = d.Close() }()
		d.SetLogger(logger)

		ctx := cmd.Context()
		if initTable {
			if e := seed(cmd, d); e != nil {
				return e
			}
		}

		var rels []profile.GeographyRelation
		if rels, e = d.Relations(ctx, relTable, geoid); e != nil {
			return e
		}

		if len(rels) == 0 {
			return fmt.Errorf("no relations for geoid %s in %s", geoid, relTable)
		}

		geoids := make([]string, len(rels))
		for ind, r := range rels {
			geoids[ind] = r.GeoID
		}

		var data profile.GeoData
		if data, e = d.Observations(ctx, obsTable, c.Tables(), geoids); e != nil {
			return e
		}

		logger.Debug("loaded", slog.String("geoid", geoid), slog.Int("relations", len(rels)),
			slog.Int("geographies", len(data)))

		return emit(ctx, cmd.OutOrStdout(), c, data, rels)
	},
}

// seed creates the tables and fills them from the JSON files
func seed(cmd *cobra.Command, d *source.Dialect) error {
	if dataFile == "" || relationsFile == "" {
		return fmt.Errorf("--init needs --data and --relations")
	}

	data := make(profile.GeoData)
	if e := readJSON(dataFile, &data); e != nil {
		return e
	}

	var rels []profile.GeographyRelation
	if e := readJSON(relationsFile, &rels); e != nil {
		return e
	}

	ctx := cmd.Context()
	if e := d.CreateTables(ctx, obsTable, relTable, true); e != nil {
		return e
	}

	if e := d.SaveObservations(ctx, obsTable, data); e != nil {
		return e
	}

	if e := d.SaveRelations(ctx, relTable, geoid, rels); e != nil {
		return e
	}

	logger.Info("initialized tables", slog.String("observations", obsTable), slog.String("relations", relTable))

	return nil
}

func init() {
	loadCmd.Flags().StringVar(&dialect, "dialect", "clickhouse", "clickhouse or postgres")
	loadCmd.Flags().StringVar(&host, "host", "", "database host (env host)")
	loadCmd.Flags().StringVar(&user, "user", "", "database user (env user)")
	loadCmd.Flags().StringVar(&password, "password", "", "database password (env password)")
	loadCmd.Flags().StringVar(&dbName, "db", "", "database name (env db)")
	loadCmd.Flags().StringVar(&geoid, "geoid", "", "geoid of the profile, e.g. 16000US2622000")
	loadCmd.Flags().StringVar(&obsTable, "observations-table", "acs_observations", "table of observations")
	loadCmd.Flags().StringVar(&relTable, "relations-table", "acs_relations", "table of geography relations")
	loadCmd.Flags().BoolVar(&initTable, "init", false, "create and fill the tables from --data and --relations")
	loadCmd.Flags().StringVar(&dataFile, "data", "", "observations JSON file for --init")
	loadCmd.Flags().StringVar(&relationsFile, "relations", "", "relations JSON file for --init")
	_ = loadCmd.MarkFlagRequired("geoid")

	rootCmd.AddCommand(loadCmd)
}
