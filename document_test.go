package profile

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	data, rels := testData(), testRelations()[:3]
	md := Metadata{TableID: "B01001", Universe: "Total population", ACSRelease: "ACS 2015 5-year"}

	b := NewBuilder()
	age := b.Section("demographics").Group("age").SetMetadata(md)
	age.Item("total", BuildItem("Total population", data, rels, MustParseFormula("B01001001")))
	age.Group("distribution").
		Item("under_5", BuildItem("Under 5", data, rels, MustParseFormula("B01001003 B01001001 / %")))

	return b.Build(testGeography(), NewGeoMetadata(Float(359366000), Float(680250)))
}

// keys returns the top level keys of a JSON object in order
func keys(t *testing.T, b []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, e := dec.Token()
	require.Nil(t, e)
	require.Equal(t, json.Delim('{'), tok)

	var out []string
	for dec.More() {
		tok, e = dec.Token()
		require.Nil(t, e)
		out = append(out, tok.(string))

		var skip json.RawMessage
		require.Nil(t, dec.Decode(&skip))
	}

	return out
}

func TestBuilder(t *testing.T) {
	doc := testDocument()

	var names []string
	for _, s := range doc.Sections() {
		names = append(names, s.Key())
	}
	assert.Equal(t, Sections, names)

	node := doc.Lookup("demographics", "age", "distribution", "under_5")
	require.NotNil(t, node)
	assert.True(t, node.IsItem())
	v, _ := node.Item().Values.Get(RelThis)
	assert.Equal(t, 20.0, *v)

	age := doc.Lookup("demographics", "age")
	require.NotNil(t, age)
	assert.False(t, age.IsItem())
	assert.Equal(t, "B01001", age.Metadata().TableID)
	assert.Len(t, age.Children(), 2)

	assert.Nil(t, doc.Lookup("demographics", "nope"))
	assert.Nil(t, doc.Lookup("nope"))
	assert.Nil(t, doc.Lookup())

	var paths [][]string
	for _, ref := range doc.Items() {
		paths = append(paths, ref.Path)
	}
	assert.Equal(t, [][]string{
		{"demographics", "age", "total"},
		{"demographics", "age", "distribution", "under_5"},
	}, paths)
}

func TestBuilder_Independent(t *testing.T) {
	b := NewBuilder()
	g := b.Section("housing").Group("units")
	item := &MetricItem{Name: "Units"}
	item.Values.Set(RelThis, Float(1))
	g.Item("total", item)

	doc := b.Build(Geography{}, nil)

	g.Item("vacant", &MetricItem{Name: "Vacant"})
	*item.Values[0].Value = 2

	units := doc.Lookup("housing", "units")
	require.NotNil(t, units)
	assert.Len(t, units.Children(), 1)
	v, _ := units.Child("total").Item().Values.Get(RelThis)
	assert.Equal(t, 1.0, *v)

	// the same key reaches the same group
	assert.Len(t, b.Build(Geography{}, nil).Lookup("housing", "units").Children(), 2)

	// replace an item
	g.Item("total", &MetricItem{Name: "Total"})
	assert.Equal(t, "Total", b.Build(Geography{}, nil).Lookup("housing", "units", "total").Item().Name)

	assert.Panics(t, func() { g.Group("total") })

	b.Section("extra")
	assert.Len(t, b.Build(Geography{}, nil).Sections(), len(Sections)+1)
}

func TestEnhance(t *testing.T) {
	doc := testDocument()
	enh := Enhance(doc)

	// the input is unchanged
	assert.NotNil(t, doc.Lookup("demographics", "age", "total").Item())
	assert.Nil(t, doc.Lookup("demographics", "age", "total").Enhanced())
	assert.Nil(t, doc.Geography().Comparatives)

	node := enh.Lookup("demographics", "age", "distribution", "under_5")
	require.NotNil(t, node)
	assert.Nil(t, node.Item())
	require.NotNil(t, node.Enhanced())
	assert.Equal(t, []string{RelThis, RelCounty, RelState}, node.Enhanced().Values.Relations())

	geo := enh.Geography()
	assert.Equal(t, []string{RelCounty, RelState}, geo.Comparatives)
	assert.Equal(t, "15", geo.CensusReleaseYear)
	assert.Equal(t, "place", geo.This.SumLevelName)

	idx, _ := enh.Lookup("demographics", "age", "total").Enhanced().Index.Get(RelCounty)
	assert.Equal(t, 50.0, *idx)
}

func TestDocument_JSON(t *testing.T) {
	doc := Enhance(testDocument())

	b, e := json.Marshal(doc)
	require.Nil(t, e)

	exp := append([]string{"geography"}, Sections...)
	assert.Equal(t, append(exp, "geo_metadata"), keys(t, b))

	var m map[string]json.RawMessage
	require.Nil(t, json.Unmarshal(b, &m))
	assert.JSONEq(t, `{}`, string(m["housing"]))

	var demo map[string]json.RawMessage
	require.Nil(t, json.Unmarshal(m["demographics"], &demo))
	assert.Equal(t, []string{"total", "distribution", "metadata"}, keys(t, demo["age"]))

	var under5 EnhancedMetricItem
	var age map[string]map[string]json.RawMessage
	require.Nil(t, json.Unmarshal(demo["age"], &age))
	require.Nil(t, json.Unmarshal(age["distribution"]["under_5"], &under5))
	assert.Equal(t, []string{"this", "county", "state"}, under5.Values.Relations())
	er, _ := under5.Errors.Get(RelThis)
	assert.Equal(t, 1.83, *er)

	assert.Equal(t, []string{"name", "values", "index", "errors", "error_ratio", "numerators", "numerator_errors"},
		keys(t, age["distribution"]["under_5"]))
}
