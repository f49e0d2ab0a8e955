package profile

// ComparativeOrder is the order in which relations are considered for display. County is skipped when CBSA
// has been chosen.
var ComparativeOrder = []string{RelThis, RelPlace, RelCBSA, RelCounty, RelState, RelNation}

// NumComparatives is the number of relations shown next to "this".
const NumComparatives = 2

// EnhancedMetricItem is a MetricItem cut down to "this" and up to NumComparatives other relations, with the
// index (100 * this / other) and the error ratio (100 * error / value) of each.
type EnhancedMetricItem struct {
	Name            string         `json:"name"`
	Values          RelationValues `json:"values"`
	Index           RelationValues `json:"index"`
	Errors          RelationValues `json:"errors"`
	ErrorRatio      RelationValues `json:"error_ratio"`
	Numerators      RelationValues `json:"numerators"`
	NumeratorErrors RelationValues `json:"numerator_errors"`

	Metadata *Metadata `json:"metadata,omitempty"`
}

func (m *EnhancedMetricItem) Copy() *EnhancedMetricItem {
	out := &EnhancedMetricItem{
		Name:            m.Name,
		Values:          m.Values.Copy(),
		Index:           m.Index.Copy(),
		Errors:          m.Errors.Copy(),
		ErrorRatio:      m.ErrorRatio.Copy(),
		Numerators:      m.Numerators.Copy(),
		NumeratorErrors: m.NumeratorErrors.Copy(),
	}

	if m.Metadata != nil {
		md := *m.Metadata
		out.Metadata = &md
	}

	return out
}

// SelectComparatives picks the relations of item to display and computes their index and error ratios.
// It returns the enhanced item and the comparative relations chosen (excluding "this"). Relations missing
// from item are skipped, so fewer than NumComparatives may be returned.
func SelectComparatives(item *MetricItem) (*EnhancedMetricItem, []string) {
	out := &EnhancedMetricItem{Name: item.Name}
	if item.Metadata != nil {
		md := *item.Metadata
		out.Metadata = &md
	}

	subject, _ := item.Values.Get(RelThis)

	var comparatives []string
	for _, rel := range ComparativeOrder {
		if rel == RelCounty && out.Values.Has(RelCBSA) {
			continue
		}

		if val, ok := item.Values.Get(rel); ok {
			out.Values.Set(rel, clone(val))

			index := Float(0)
			if subject != nil && *subject != 0 {
				index = Ratio(subject, val, 2)
			}
			out.Index.Set(rel, index)

			if rel != RelThis {
				comparatives = append(comparatives, rel)
			}

			if moeVal, ok := item.Errors.Get(rel); ok {
				out.Errors.Set(rel, clone(moeVal))
				out.ErrorRatio.Set(rel, Ratio(moeVal, val, 3))
			}
		}

		if num, ok := item.Numerators.Get(rel); ok {
			out.Numerators.Set(rel, clone(num))

			if numErr, ok := item.NumeratorErrors.Get(rel); ok {
				out.NumeratorErrors.Set(rel, clone(numErr))
			}
		}

		if len(out.Values) >= NumComparatives+1 {
			break
		}
	}

	return out, comparatives
}
