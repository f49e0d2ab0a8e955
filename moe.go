package profile

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Formulas follow the ACS General Handbook, "Calculating MOEs for Derived Proportions/Ratios" (A-14, A-15).

// MOEAdd is the MOE of a sum or a difference of two estimates.
func MOEAdd(moeA, moeB float64) float64 {
	return math.Sqrt(moeA*moeA + moeB*moeB)
}

// MOEProportion is the MOE of numerator/denominator when the numerator is a subset of the denominator.
// If the radicand is negative, the ratio formula is used instead.
func MOEProportion(numerator, denominator, numeratorMOE, denominatorMOE float64) float64 {
	p := numerator / denominator
	radicand := numeratorMOE*numeratorMOE - p*p*denominatorMOE*denominatorMOE
	if radicand < 0 {
		return MOERatio(numerator, denominator, numeratorMOE, denominatorMOE)
	}

	return math.Sqrt(radicand) / denominator
}

// MOERatio is the MOE of numerator/denominator for independent aggregates.
func MOERatio(numerator, denominator, numeratorMOE, denominatorMOE float64) float64 {
	r := numerator / denominator
	return math.Sqrt(numeratorMOE*numeratorMOE+r*r*denominatorMOE*denominatorMOE) / denominator
}

func Percentify(val float64) float64 {
	return val * 100
}

func Rateify(val float64) float64 {
	return val * 1000
}

// *********** Rounding ***********

// Round rounds x half away from zero to places decimals. places may be negative.
func Round(x float64, places int) float64 {
	return scalar.Round(x, places)
}

// roundPtr rounds x if it is not nil.
func roundPtr(x *float64, places int) *float64 {
	if x == nil {
		return nil
	}

	return Float(Round(*x, places))
}

// Ratio returns 100*num/den rounded to places. nil if either is nil or den is 0.
func Ratio(num, den *float64, places int) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}

	return Float(Round(*num / *den * 100, places))
}

// Division returns num/den rounded to places. nil if either is nil or den is 0.
func Division(num, den *float64, places int) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}

	return Float(Round(*num / *den, places))
}
