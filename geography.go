package profile

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Place describes one geography in the document header.
type Place struct {
	FullName        string   `json:"full_name"`
	ShortName       string   `json:"short_name"`
	SumLevel        string   `json:"sumlevel"`
	LandArea        *float64 `json:"land_area"`
	FullGeoID       string   `json:"full_geoid"`
	TotalPopulation *int64   `json:"total_population"`

	SumLevelName   string `json:"sumlevel_name,omitempty"`
	ShortGeoID     string `json:"short_geoid,omitempty"`
	ShowExtraLinks bool   `json:"show_extra_links,omitempty"`
}

// ParentPlace is a containing geography and its relation to the subject.
type ParentPlace struct {
	Relation string
	Place    Place
}

// Parents marshals to a JSON object keyed by relation, in order.
type Parents []ParentPlace

func (p Parents) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ind, pp := range p {
		if ind > 0 {
			buf.WriteByte(',')
		}

		k, _ := json.Marshal(pp.Relation)
		buf.Write(k)
		buf.WriteByte(':')

		v, e := json.Marshal(pp.Place)
		if e != nil {
			return nil, e
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Geography is the header of a Document.
type Geography struct {
	CensusRelease string  `json:"census_release"`
	This          *Place  `json:"this"`
	Parents       Parents `json:"parents"`

	// Comparatives are the relations shown next to "this", set by Enhance.
	Comparatives []string `json:"comparatives,omitempty"`

	CensusReleaseYear  string `json:"census_release_year,omitempty"`
	CensusReleaseLevel string `json:"census_release_level,omitempty"`
}

// PopulationVariable is the total population estimate used for the header.
const PopulationVariable = "B01001001"

// NewGeography builds the header of a query: the "this" relation becomes This and every other relation a
// parent. Names come from the relations' display names and total populations from data, when present.
func NewGeography(release string, relations []GeographyRelation, data GeoData) Geography {
	g := Geography{CensusRelease: release}
	for _, rel := range relations {
		p := Place{FullName: rel.DisplayName, ShortName: rel.DisplayName, SumLevel: rel.SumLevel, FullGeoID: rel.GeoID}
		if obs, ok := data.Flatten(rel.GeoID); ok {
			if est := obs.Get(PopulationVariable).Estimate; est != nil {
				pop := int64(Round(*est, 0))
				p.TotalPopulation = &pop
			}
		}

		if rel.Relation == RelThis {
			g.This = &p
			continue
		}

		g.Parents = append(g.Parents, ParentPlace{Relation: rel.Relation, Place: p})
	}

	return g
}

// school district summary levels
var schoolDistricts = []string{"950", "960", "970"}

// Derive fills in the fields computed from the rest of the header: the summary level name and short geoid
// of "this" and the year and level of the release. A release named e.g. "ACS 2015 5-year" has year "15" and
// level "5". Extra links are shown for school districts in 1- and 3-year releases.
func (g *Geography) Derive() {
	bits := strings.Split(g.CensusRelease, " ")
	if len(bits) >= 2 && len(bits[1]) > 2 {
		g.CensusReleaseYear = bits[1][2:]
	}

	if len(bits) >= 3 && bits[2] != "" {
		g.CensusReleaseLevel = bits[2][:1]
	}

	if g.This == nil {
		return
	}

	g.This.SumLevelName = SumLevelName(g.This.SumLevel)
	if _, short, ok := strings.Cut(g.This.FullGeoID, "US"); ok {
		g.This.ShortGeoID = short
	}

	if (g.CensusReleaseLevel == "1" || g.CensusReleaseLevel == "3") && has(g.This.SumLevel, schoolDistricts) {
		g.This.ShowExtraLinks = true
	}
}

func (g Geography) copy() Geography {
	out := g
	if g.This != nil {
		this := *g.This
		out.This = &this
	}

	out.Parents = append(Parents(nil), g.Parents...)
	out.Comparatives = append([]string(nil), g.Comparatives...)

	return out
}

// *********** Summary levels ***********

var sumLevelNames = map[string]string{
	"010": "nation",
	"020": "region",
	"030": "division",
	"040": "state",
	"050": "county",
	"060": "county subdivision",
	"067": "subminor civil subdivision",
	"140": "census tract",
	"150": "block group",
	"160": "place",
	"170": "consolidated city",
	"230": "Alaska native regional corporation",
	"250": "native area",
	"310": "metro area",
	"314": "metropolitan division",
	"330": "combined statistical area",
	"350": "New England city and town area",
	"400": "urban area",
	"500": "congressional district",
	"610": "state senate district",
	"620": "state house district",
	"795": "public use microdata area",
	"860": "ZIP code",
	"950": "school district (elementary)",
	"960": "school district (secondary)",
	"970": "school district (unified)",
}

// SumLevelName returns the name of a Census summary level, or "" if the code is unknown.
func SumLevelName(code string) string {
	return sumLevelNames[code]
}

// *********** GeoMetadata ***********

const squareMetersPerMile = 2589988

// GeoMetadata holds the land area of "this" and the measures derived from it.
type GeoMetadata struct {
	LandArea          *float64 `json:"aland"`
	SquareMiles       *float64 `json:"square_miles"`
	PopulationDensity *float64 `json:"population_density"`
}

// NewGeoMetadata converts aland (square meters) to square miles, with 3 places for areas under 0.1 square
// miles, and computes the population density against the area rounded to tens of square miles.
func NewGeoMetadata(aland, totalPopulation *float64) *GeoMetadata {
	sqm := Float(squareMetersPerMile)

	gm := &GeoMetadata{LandArea: clone(aland)}
	if gm.SquareMiles = Division(aland, sqm, 2); gm.SquareMiles != nil && *gm.SquareMiles < .1 {
		gm.SquareMiles = Division(aland, sqm, 3)
	}

	gm.PopulationDensity = Division(totalPopulation, Division(aland, sqm, -1), 2)

	return gm
}
