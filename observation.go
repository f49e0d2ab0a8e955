package profile

import "sort"

// Float returns a pointer to x. A nil *float64 is a null throughout the package.
func Float(x float64) *float64 {
	return &x
}

// Observation is an estimate and its margin of error. Either may be null.
type Observation struct {
	Estimate *float64
	Error    *float64
}

// Observations maps a table variable (e.g. B01001003) to its Observation for one geography.
type Observations map[string]Observation

// Get returns the observation for variable. A missing variable is a null observation.
func (o Observations) Get(variable string) Observation {
	if o == nil {
		return Observation{}
	}

	return o[variable]
}

// TableData holds the estimates and errors of one table for one geography.
type TableData struct {
	Estimate map[string]*float64 `json:"estimate"`
	Error    map[string]*float64 `json:"error"`
}

// GeoData is keyed by geoid, then by table id.
type GeoData map[string]map[string]TableData

// Flatten merges all tables for geoid into a single Observations. ok is false if there is no data for geoid.
// Tables are visited in sorted order so that a variable repeated across tables resolves the same way every time.
func (g GeoData) Flatten(geoid string) (obs Observations, ok bool) {
	var tables map[string]TableData
	if tables, ok = g[geoid]; !ok || len(tables) == 0 {
		return nil, false
	}

	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	obs = make(Observations)
	for _, id := range ids {
		td := tables[id]
		for variable, est := range td.Estimate {
			o := obs[variable]
			o.Estimate = est
			obs[variable] = o
		}

		for variable, moe := range td.Error {
			o := obs[variable]
			o.Error = moe
			obs[variable] = o
		}
	}

	return obs, true
}

// Merge adds the tables in src to g, replacing tables that already exist for a geoid.
func (g GeoData) Merge(src GeoData) {
	for geoid, tables := range src {
		if g[geoid] == nil {
			g[geoid] = make(map[string]TableData)
		}

		for id, td := range tables {
			g[geoid][id] = td
		}
	}
}

// Set records a single estimate/error pair.
func (g GeoData) Set(geoid, tableID, variable string, estimate, moe *float64) {
	if g[geoid] == nil {
		g[geoid] = make(map[string]TableData)
	}

	td := g[geoid][tableID]
	if td.Estimate == nil {
		td.Estimate = make(map[string]*float64)
	}

	if td.Error == nil {
		td.Error = make(map[string]*float64)
	}

	td.Estimate[variable] = estimate
	td.Error[variable] = moe
	g[geoid][tableID] = td
}

// GeographyRelation is one geography relative to the subject of a query.
// Relation is "this" for the subject itself, otherwise e.g. "county", "state", "CBSA".
type GeographyRelation struct {
	GeoID       string `json:"geoid"`
	Relation    string `json:"relation"`
	SumLevel    string `json:"sumlevel"`
	DisplayName string `json:"display_name,omitempty"`
}

// relation labels
const (
	RelThis   = "this"
	RelPlace  = "place"
	RelCBSA   = "CBSA"
	RelCounty = "county"
	RelState  = "state"
	RelNation = "nation"
)
