package source

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invertedv/profile"
)

// D3Prefix marks variables from the Data Driven Detroit open data portal.
const D3Prefix = "D3-"

// Feature is one record of an ArcGIS feature service query.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
}

// FeatureSet is the body of an ArcGIS query response.
type FeatureSet struct {
	Features []Feature `json:"features"`
}

// ReadFeatureSet decodes an ArcGIS query response.
func ReadFeatureSet(r io.Reader) (*FeatureSet, error) {
	var fs FeatureSet
	if e := json.NewDecoder(r).Decode(&fs); e != nil {
		return nil, fmt.Errorf("decoding feature set: %w", e)
	}

	return &fs, nil
}

// FromFeatures converts feature attributes to observations of tableID. features holds, for each summary
// level, the features queried for the geography of that level; each relation takes the features of its
// summary level. Variables are the attribute names with D3Prefix. Counts are exact, so every error is 0.
// Attributes that are not numbers are skipped.
func FromFeatures(tableID string, features map[string][]Feature, relations []profile.GeographyRelation) profile.GeoData {
	gd := make(profile.GeoData)
	for _, rel := range relations {
		for _, f := range features[rel.SumLevel] {
			for key, val := range f.Attributes {
				est := profile.ToFloat(val)
				if est == nil {
					continue
				}

				gd.Set(rel.GeoID, tableID, D3Prefix+key, est, profile.Float(0))
			}
		}
	}

	return gd
}
