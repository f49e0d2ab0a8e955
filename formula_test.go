package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testObs() Observations {
	return Observations{
		"B01001001": {Estimate: Float(500), Error: Float(20)},
		"B01001003": {Estimate: Float(100), Error: Float(10)},
		"B01001004": {Estimate: Float(50), Error: Float(5)},
		"B01001005": {Estimate: Float(0), Error: Float(3)},
		"B01001006": {Estimate: Float(30), Error: nil},
		"C17002001": {Estimate: Float(5), Error: Float(0)},
		"D3-births": {Estimate: Float(12), Error: Float(0)},
	}
}

func TestParseFormula(t *testing.T) {
	f, e := ParseFormula("  B01001003   B01001004 + B01001001 / % ")
	require.Nil(t, e)
	assert.Equal(t, "B01001003 B01001004 + B01001001 / %", f.String())
	assert.Equal(t, []string{"B01001003", "B01001004", "B01001001"}, f.Variables())

	f, e = ParseFormula("B01001003 B01001003 + 2 /")
	require.Nil(t, e)
	assert.Equal(t, []string{"B01001003"}, f.Variables())

	_, e = ParseFormula("D3-births")
	assert.Nil(t, e)

	_, e = ParseFormula("X01001003")
	assert.True(t, errors.Is(e, ErrInvalidToken))
	assert.Contains(t, e.Error(), `"X01001003"`)

	_, e = ParseFormula("B01001003 B01001001 *")
	assert.True(t, errors.Is(e, ErrInvalidToken))

	for _, bad := range []string{"", "   ", "B01001003 /", "%", "B01001003 B01001001", "B01001003 + B01001001"} {
		_, e = ParseFormula(bad)
		assert.True(t, errors.Is(e, ErrMalformedFormula), bad)
	}
}

func TestFormulaPrefixes(t *testing.T) {
	_, e := ParseFormula("P001 P002 +")
	assert.True(t, errors.Is(e, ErrInvalidToken))

	f, e := ParseFormula("P001 P002 +", FormulaPrefixes("P"))
	require.Nil(t, e)
	res := f.Evaluate(Observations{"P001": {Float(1), Float(3)}, "P002": {Float(2), Float(4)}})
	assert.Equal(t, 3.0, *res.Value)
	assert.Equal(t, 5.0, *res.Error)

	_, e = ParseFormula("P001", FormulaPrefixes())
	assert.NotNil(t, e)

	_, e = ParseFormula("P001", FormulaPrefixes(""))
	assert.NotNil(t, e)
}

func TestMustParseFormula(t *testing.T) {
	assert.NotPanics(t, func() { MustParseFormula("B01001003") })
	assert.Panics(t, func() { MustParseFormula("B01001003 +") })
}

func TestEvaluate_Variable(t *testing.T) {
	res, e := Evaluate("B01001003", testObs())
	require.Nil(t, e)
	assert.Equal(t, 100.0, *res.Value)
	assert.Equal(t, 10.0, *res.Error)
	assert.Nil(t, res.Numerator)
	assert.Nil(t, res.NumeratorError)

	res, e = Evaluate("B99999999", testObs())
	require.Nil(t, e)
	assert.Nil(t, res.Value)
	assert.Nil(t, res.Error)

	_, e = Evaluate("B01001003 B01001001", testObs())
	assert.True(t, errors.Is(e, ErrMalformedFormula))
}

func TestEvaluate_Additive(t *testing.T) {
	res, e := Evaluate("B01001003 B01001004 +", testObs())
	require.Nil(t, e)
	assert.Equal(t, 150.0, *res.Value)
	assert.InDelta(t, math.Sqrt(125), *res.Error, 1e-12)

	res, e = Evaluate("B01001003 B01001004 -", testObs())
	require.Nil(t, e)
	assert.Equal(t, 50.0, *res.Value)
	assert.InDelta(t, math.Sqrt(125), *res.Error, 1e-12)

	// second from top is the left operand
	res, e = Evaluate("B01001004 B01001003 -", testObs())
	require.Nil(t, e)
	assert.Equal(t, -50.0, *res.Value)

	// a null error counts as exact
	res, e = Evaluate("B01001006 B01001004 +", testObs())
	require.Nil(t, e)
	assert.Equal(t, 80.0, *res.Value)
	assert.Equal(t, 5.0, *res.Error)
}

func TestEvaluate_Ratio(t *testing.T) {
	res, e := Evaluate("B01001003 B01001001 / %", testObs())
	require.Nil(t, e)
	assert.InDelta(t, 20.0, *res.Value, 1e-12)
	assert.InDelta(t, 100*math.Sqrt(84)/500, *res.Error, 1e-12)
	assert.Equal(t, 100.0, *res.Numerator)
	assert.Equal(t, 10.0, *res.NumeratorError)

	res, e = Evaluate("B01001003 B01001001 /", testObs())
	require.Nil(t, e)
	assert.InDelta(t, .2, *res.Value, 1e-12)
	assert.InDelta(t, math.Sqrt(84)/500, *res.Error, 1e-12)
}

func TestEvaluate_ZeroRatio(t *testing.T) {
	for _, text := range []string{"B01001003 B01001005 /", "B01001005 B01001003 /", "B01001005 B01001005 /"} {
		res, e := Evaluate(text, testObs())
		require.Nil(t, e)
		assert.Equal(t, 0.0, *res.Value, text)
		assert.Equal(t, 0.0, *res.Error, text)
	}

	// literals too
	res, e := Evaluate("B01001003 0 /", testObs())
	require.Nil(t, e)
	assert.Equal(t, 0.0, *res.Value)
	assert.Equal(t, 0.0, *res.Error)
}

func TestEvaluate_Null(t *testing.T) {
	for _, text := range []string{
		"B99999999 B01001001 /",
		"B01001003 B99999999 /",
		"B99999999 B01001003 +",
		"B01001003 B99999999 -",
		"B99999999 %",
		"B99999999 %%",
		"B01001003 B99999999 + B01001001 / %",
		"B01001001 B01001003 B99999999 - /",
	} {
		res, e := Evaluate(text, testObs())
		require.Nil(t, e)
		assert.Nil(t, res.Value, text)
		assert.Nil(t, res.Error, text)
	}

	// a null ratio records no numerator
	res, e := Evaluate("B99999999 B01001001 /", testObs())
	require.Nil(t, e)
	assert.Nil(t, res.Numerator)
	assert.Nil(t, res.NumeratorError)

	// nor does an empty observation set
	res = MustParseFormula("B01001003 B01001001 /").Evaluate(nil)
	assert.Nil(t, res.Value)
	assert.Nil(t, res.Numerator)
}

func TestEvaluate_Scale(t *testing.T) {
	res, e := Evaluate("B01001003 %", testObs())
	require.Nil(t, e)
	assert.Equal(t, 10000.0, *res.Value)
	assert.Equal(t, 1000.0, *res.Error)

	res, e = Evaluate("B01001003 %%", testObs())
	require.Nil(t, e)
	assert.Equal(t, 100000.0, *res.Value)
	assert.Equal(t, 10000.0, *res.Error)

	// null error stays null under scaling
	res, e = Evaluate("B01001006 %", testObs())
	require.Nil(t, e)
	assert.Equal(t, 3000.0, *res.Value)
	assert.Nil(t, res.Error)

	res, e = Evaluate("C17002001 B01001001 / %%", testObs())
	require.Nil(t, e)
	assert.InDelta(t, 10.0, *res.Value, 1e-9)

	// a literal carries itself as its error
	res, e = Evaluate("2 %", testObs())
	require.Nil(t, e)
	assert.Equal(t, 200.0, *res.Value)
	assert.Equal(t, 200.0, *res.Error)
}

func TestEvaluate_LastRatio(t *testing.T) {
	res, e := Evaluate("B01001003 B01001001 / B01001004 B01001001 / +", testObs())
	require.Nil(t, e)
	assert.InDelta(t, .3, *res.Value, 1e-12)
	assert.Equal(t, 50.0, *res.Numerator)
	assert.Equal(t, 5.0, *res.NumeratorError)

	// numerator error is rounded to 1 place
	obs := Observations{"B1": {Float(10), Float(1.26)}, "B2": {Float(40), Float(2)}}
	res = MustParseFormula("B1 B2 /").Evaluate(obs)
	assert.Equal(t, 1.3, *res.NumeratorError)

	// zero ratios still record the numerator
	res, e = Evaluate("B01001005 B01001003 /", testObs())
	require.Nil(t, e)
	assert.Equal(t, 0.0, *res.Numerator)
	assert.Equal(t, 3.0, *res.NumeratorError)
}

func TestEvaluate_Empty(t *testing.T) {
	res := (&Formula{}).Evaluate(testObs())
	assert.Nil(t, res.Value)
	assert.Nil(t, res.Error)

	var f *Formula
	res = f.Evaluate(testObs())
	assert.Nil(t, res.Value)

	item := BuildItem("none", testData(), testRelations(), nil)
	v, ok := item.Values.Get(RelThis)
	assert.True(t, ok)
	assert.Nil(t, v)
	er, _ := item.Errors.Get(RelThis)
	assert.Equal(t, 0.0, *er)
}

func TestFormula_Reuse(t *testing.T) {
	f := MustParseFormula("B01001003 B01001001 / %")

	r1 := f.Evaluate(testObs())
	r2 := f.Evaluate(Observations{"B01001003": {Float(1), Float(1)}, "B01001001": {Float(4), Float(1)}})
	r3 := f.Evaluate(testObs())

	assert.InDelta(t, 25.0, *r2.Value, 1e-12)
	assert.Equal(t, *r1.Value, *r3.Value)
	assert.Equal(t, *r1.Error, *r3.Error)
}

func TestOperator(t *testing.T) {
	for sym, op := range opSymbols {
		assert.Equal(t, sym, op.String())
	}

	assert.Equal(t, 1, OpPercent.Arity())
	assert.Equal(t, 1, OpRate.Arity())
	assert.Equal(t, 2, OpRatio.Arity())
	assert.Panics(t, func() { Operator(0).Arity() })
}
