package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/invertedv/profile"
	"github.com/invertedv/profile/catalog"
	"github.com/invertedv/profile/source"
)

var (
	dataFile      string
	relationsFile string
	release       string
	raw           bool
	csvFile       string
	landArea      float64
	featureFiles  map[string]string
	featureTable  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a document from JSON observations and relations",
	Long: `build reads observations keyed by geoid then table id
({"<geoid>": {"<table>": {"estimate": {...}, "error": {...}}}}) and the ordered
relations of the query ([{"geoid": ..., "relation": "this", "sumlevel": ...}, ...]).
Use - to read either from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, e := loadCatalog()
		if e != nil {
			return e
		}

		data := make(profile.GeoData)
		if e := readJSON(dataFile, &data); e != nil {
			return e
		}

		var rels []profile.GeographyRelation
		if e := readJSON(relationsFile, &rels); e != nil {
			return e
		}

		return emit(cmd.Context(), cmd.OutOrStdout(), c, data, rels)
	},
}

func init() {
	buildCmd.Flags().StringVar(&dataFile, "data", "", "observations JSON file")
	buildCmd.Flags().StringVar(&relationsFile, "relations", "", "relations JSON file")
	_ = buildCmd.MarkFlagRequired("data")
	_ = buildCmd.MarkFlagRequired("relations")

	for _, c := range []*cobra.Command{buildCmd, loadCmd} {
		c.Flags().StringVar(&release, "release", "ACS 2015 5-year", "name of the ACS release")
		c.Flags().BoolVar(&raw, "raw", false, "write every relation instead of the selected comparatives")
		c.Flags().StringVar(&csvFile, "csv", "", "also write the document as CSV to this file")
		c.Flags().Float64Var(&landArea, "aland", 0, "land area of the geography in square meters")
		c.Flags().StringToStringVar(&featureFiles, "features", nil,
			"ArcGIS query responses by summary level, e.g. 160=city.json,050=county.json")
		c.Flags().StringVar(&featureTable, "features-table", "D3-Births", "table id of the --features data")
	}

	rootCmd.AddCommand(buildCmd)
}

// emit assembles the document and writes it to w, and to csvFile if set
func emit(ctx context.Context, w io.Writer, c *catalog.Catalog, data profile.GeoData, rels []profile.GeographyRelation) error {
	if e := addFeatures(data, rels); e != nil {
		return e
	}

	geo := profile.NewGeography(release, rels, data)

	var geoMeta *profile.GeoMetadata
	if landArea > 0 {
		var pop *float64
		if geo.This != nil && geo.This.TotalPopulation != nil {
			pop = profile.Float(float64(*geo.This.TotalPopulation))
		}

		geoMeta = profile.NewGeoMetadata(profile.Float(landArea), pop)
	}

	doc, e := c.Assemble(ctx, data, rels, geo, geoMeta)
	if e != nil {
		return e
	}

	if !raw {
		doc = profile.Enhance(doc)
	}

	if csvFile != "" {
		f := profile.NewFiles()
		if e := f.Create(csvFile); e != nil {
			return e
		}

		if e := f.WriteDocument(doc); e != nil {
			_ = f.Close()
			return e
		}

		if e := f.Close(); e != nil {
			return e
		}

		logger.Info("wrote csv", slog.String("file", csvFile))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(doc)
}

// addFeatures merges the --features files into data as featureTable
func addFeatures(data profile.GeoData, rels []profile.GeographyRelation) error {
	if len(featureFiles) == 0 {
		return nil
	}

	features := make(map[string][]source.Feature)
	for sumLevel, fileName := range featureFiles {
		f, e := os.Open(fileName)
		if e != nil {
			return e
		}

		fs, e := source.ReadFeatureSet(f)
		_ = f.Close()
		if e != nil {
			return fmt.Errorf("%s: %w", fileName, e)
		}

		features[sumLevel] = fs.Features
	}

	data.Merge(source.FromFeatures(featureTable, features, rels))
	logger.Debug("merged features", slog.String("table", featureTable), slog.Int("files", len(featureFiles)))

	return nil
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
