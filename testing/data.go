package testing

import (
	"context"
	"os"

	"github.com/invertedv/profile"
	"github.com/invertedv/profile/source"
)

const (
	obsTableCH = "default.acs_observations_test"
	relTableCH = "default.acs_relations_test"
	obsTablePG = "public.acs_observations_test"
	relTablePG = "public.acs_relations_test"

	pg = "postgres"
	ch = "clickhouse"

	detroit = "16000US2622000"
)

// environment variables:
//   - host database IP address
//   - user database user
//   - password: database password
//   - db: Postgres database

// list of dialects to test
func pkgs() []string {
	return []string{pg, ch}
}

func tableNames(which string) (obsTable, relTable string) {
	if which == ch {
		return obsTableCH, relTableCH
	}

	return obsTablePG, relTablePG
}

// connect returns nil if the host environment variable is not set
func connect(which string) (*source.Dialect, error) {
	host := os.Getenv("host")
	if host == "" {
		return nil, nil
	}

	dbName := os.Getenv("db")
	if which == ch {
		dbName = ""
	}

	return source.Connect(which, host, os.Getenv("user"), os.Getenv("password"), dbName)
}

func testRelations() []profile.GeographyRelation {
	return []profile.GeographyRelation{
		{GeoID: detroit, Relation: profile.RelThis, SumLevel: "160", DisplayName: "Detroit, MI"},
		{GeoID: "05000US26163", Relation: profile.RelCounty, SumLevel: "050", DisplayName: "Wayne County, MI"},
		{GeoID: "04000US26", Relation: profile.RelState, SumLevel: "040", DisplayName: "Michigan"},
		{GeoID: "01000US", Relation: profile.RelNation, SumLevel: "010", DisplayName: "United States"},
	}
}

func testData() profile.GeoData {
	gd := make(profile.GeoData)
	for _, x := range []struct {
		geoid               string
		pop, popMOE, income float64
		incomeMOE           *float64
	}{
		{detroit, 680250, 0, 26095, profile.Float(470)},
		{"05000US26163", 1775273, 0, 41504, profile.Float(224)},
		{"04000US26", 9900571, 0, 49087, profile.Float(110)},
		{"01000US", 316515021, 0, 53889, nil},
	} {
		gd.Set(x.geoid, "B01001", "B01001001", profile.Float(x.pop), profile.Float(x.popMOE))
		gd.Set(x.geoid, "B19013", "B19013001", profile.Float(x.income), x.incomeMOE)
	}

	return gd
}

// seed creates the tables and loads the test data
func seed(ctx context.Context, d *source.Dialect, obsTable, relTable string) error {
	if e := d.CreateTables(ctx, obsTable, relTable, true); e != nil {
		return e
	}

	if e := d.SaveObservations(ctx, obsTable, testData()); e != nil {
		return e
	}

	return d.SaveRelations(ctx, relTable, detroit, testRelations())
}
