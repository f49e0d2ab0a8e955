package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// *********** RelationValues ***********

// RelationValue is the number reported for one relation (this, county, ...).
type RelationValue struct {
	Relation string
	Value    *float64
}

// RelationValues is an ordered relation -> number map. It marshals to a JSON object whose keys keep their order,
// which is the column order used for display.
type RelationValues []RelationValue

// Get returns the value for rel. ok is false if rel is not a key; a key may be present with a nil value.
func (rv RelationValues) Get(rel string) (val *float64, ok bool) {
	for _, x := range rv {
		if x.Relation == rel {
			return x.Value, true
		}
	}

	return nil, false
}

// Has is true if rel is a key.
func (rv RelationValues) Has(rel string) bool {
	_, ok := rv.Get(rel)
	return ok
}

// Set replaces the value of rel, or appends it if rel is not present.
func (rv *RelationValues) Set(rel string, val *float64) {
	for ind := range *rv {
		if (*rv)[ind].Relation == rel {
			(*rv)[ind].Value = val
			return
		}
	}

	*rv = append(*rv, RelationValue{Relation: rel, Value: val})
}

// Relations returns the keys in order.
func (rv RelationValues) Relations() []string {
	var rels []string
	for _, x := range rv {
		rels = append(rels, x.Relation)
	}

	return rels
}

func (rv RelationValues) Copy() RelationValues {
	if rv == nil {
		return nil
	}

	out := make(RelationValues, len(rv))
	for ind, x := range rv {
		out[ind] = RelationValue{Relation: x.Relation, Value: clone(x.Value)}
	}

	return out
}

func (rv RelationValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ind, x := range rv {
		if ind > 0 {
			buf.WriteByte(',')
		}

		k, _ := json.Marshal(x.Relation)
		buf.Write(k)
		buf.WriteByte(':')

		v, e := json.Marshal(x.Value)
		if e != nil {
			return nil, e
		}
		buf.Write(v)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (rv *RelationValues) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, e := dec.Token()
	if e != nil {
		return e
	}

	if tok == nil {
		*rv = nil
		return nil
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("relation values must be a JSON object, got %v", tok)
	}

	out := RelationValues{}
	for dec.More() {
		var key json.Token
		if key, e = dec.Token(); e != nil {
			return e
		}

		var val *float64
		if e := dec.Decode(&val); e != nil {
			return fmt.Errorf("relation %v: %w", key, e)
		}

		out.Set(key.(string), val)
	}

	*rv = out

	return nil
}

// *********** Metadata ***********

// Metadata describes where an item or group of items comes from.
type Metadata struct {
	TableID    string `json:"table_id"`
	Universe   string `json:"universe"`
	ACSRelease string `json:"acs_release"`
}

// *********** MetricItem ***********

// MetricItem is one indicator evaluated for every relation of a query.
type MetricItem struct {
	Name            string         `json:"name"`
	Values          RelationValues `json:"values"`
	Errors          RelationValues `json:"errors"`
	Numerators      RelationValues `json:"numerators"`
	NumeratorErrors RelationValues `json:"numerator_errors"`

	Metadata *Metadata `json:"metadata,omitempty"`
}

// BuildItem evaluates f for each relation. A relation whose geoid has no data gets null entries (and a 0 error);
// it is never an error.
//
// Values and numerators are rounded to 2 places. The error is rounded to 2 places, with a null or zero error
// reported as 0, so a computed error of exactly 0 and a missing one look the same in the output.
func BuildItem(name string, data GeoData, relations []GeographyRelation, f *Formula) *MetricItem {
	item := &MetricItem{Name: name}

	for _, rel := range relations {
		var res Result
		if obs, ok := data.Flatten(rel.GeoID); ok {
			res = f.Evaluate(obs)
		}

		item.set(rel.Relation, res)
	}

	return item
}

// AddMetadata attaches the source table, universe and release to the item.
func (m *MetricItem) AddMetadata(tableID, universe, acsRelease string) {
	m.Metadata = &Metadata{TableID: tableID, Universe: universe, ACSRelease: acsRelease}
}

func (m *MetricItem) Copy() *MetricItem {
	out := &MetricItem{
		Name:            m.Name,
		Values:          m.Values.Copy(),
		Errors:          m.Errors.Copy(),
		Numerators:      m.Numerators.Copy(),
		NumeratorErrors: m.NumeratorErrors.Copy(),
	}

	if m.Metadata != nil {
		md := *m.Metadata
		out.Metadata = &md
	}

	return out
}

func (m *MetricItem) set(rel string, res Result) {
	value := roundPtr(res.Value, 2)

	errVal := Float(0)
	if value != nil && res.Error != nil && *res.Error != 0 {
		errVal = Float(Round(*res.Error, 2))
	}

	m.Values.Set(rel, value)
	m.Errors.Set(rel, errVal)
	m.Numerators.Set(rel, roundPtr(res.Numerator, 2))
	m.NumeratorErrors.Set(rel, roundPtr(res.NumeratorError, 2))
}
