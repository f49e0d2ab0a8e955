package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by ParseFormula. These are configuration errors: a formula that parses evaluates without error.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrMalformedFormula = errors.New("malformed formula")
)

// DefaultPrefixes are the prefixes that mark a token as a variable reference: ACS detailed tables (B),
// collapsed tables (C) and Data Driven Detroit open data fields (D3-).
var DefaultPrefixes = []string{"B", "C", "D3-"}

type tokenKind uint8

const (
	tkVariable tokenKind = iota
	tkLiteral
	tkOperator
)

type token struct {
	kind    tokenKind
	text    string
	literal float64
	op      Operator
}

// Formula is a compiled reverse-Polish formula. It is immutable and safe for concurrent use.
type Formula struct {
	text     string
	tokens   []token
	prefixes []string
}

// Result is the outcome of evaluating a Formula for one geography. Numerator and NumeratorError come from
// the last "/" in the formula and are nil if it has none.
type Result struct {
	Value          *float64
	Error          *float64
	Numerator      *float64
	NumeratorError *float64
}

// FormulaOpt sets an option on a Formula before it is compiled.
type FormulaOpt func(f *Formula) error

// FormulaPrefixes replaces DefaultPrefixes.
func FormulaPrefixes(prefixes ...string) FormulaOpt {
	return func(f *Formula) error {
		if len(prefixes) == 0 {
			return fmt.Errorf("no variable prefixes given")
		}

		for _, p := range prefixes {
			if p == "" {
				return fmt.Errorf("empty variable prefix")
			}
		}

		f.prefixes = prefixes
		return nil
	}
}

// ParseFormula compiles a whitespace-delimited reverse-Polish formula such as
//
//	B01001003 B01001004 + B01001001 / %
//
// Every token must be an operator (+, -, /, %, %%), a variable reference or a number, and the formula must
// leave exactly one entry on the stack.
func ParseFormula(text string, opts ...FormulaOpt) (*Formula, error) {
	f := &Formula{text: strings.Join(strings.Fields(text), " "), prefixes: DefaultPrefixes}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty formula", ErrMalformedFormula)
	}

	depth := 0
	for ind, field := range fields {
		var (
			tk token
			e  error
		)
		if tk, e = f.scan(field); e != nil {
			return nil, fmt.Errorf("%w %q at position %d in %q", e, field, ind+1, f.text)
		}

		if tk.kind == tkOperator {
			if depth < tk.op.Arity() {
				return nil, fmt.Errorf("%w: operator %s at position %d lacks operands in %q",
					ErrMalformedFormula, tk.op, ind+1, f.text)
			}

			depth -= tk.op.Arity()
		}

		depth++
		f.tokens = append(f.tokens, tk)
	}

	if depth != 1 {
		return nil, fmt.Errorf("%w: %d values left on the stack in %q", ErrMalformedFormula, depth, f.text)
	}

	return f, nil
}

// MustParseFormula is ParseFormula for formulas known at compile time. It panics on error.
func MustParseFormula(text string, opts ...FormulaOpt) *Formula {
	f, e := ParseFormula(text, opts...)
	if e != nil {
		panic(e)
	}

	return f
}

// Evaluate parses text and evaluates it against obs.
func Evaluate(text string, obs Observations) (Result, error) {
	var (
		f *Formula
		e error
	)
	if f, e = ParseFormula(text); e != nil {
		return Result{}, e
	}

	return f.Evaluate(obs), nil
}

// ***************** Formula - Methods *****************

func (f *Formula) String() string {
	return f.text
}

// Variables returns the variables referenced by the formula, in order of first use.
func (f *Formula) Variables() []string {
	var vars []string
	for _, tk := range f.tokens {
		if tk.kind == tkVariable && !has(tk.text, vars) {
			vars = append(vars, tk.text)
		}
	}

	return vars
}

// Evaluate runs the formula against obs. Missing variables are nulls; a null operand makes the result of
// its operator null. A nil or empty Formula evaluates to an all-null Result.
func (f *Formula) Evaluate(obs Observations) Result {
	var (
		st  stack
		res Result
	)

	if f == nil || len(f.tokens) == 0 {
		return res
	}

	for _, tk := range f.tokens {
		switch tk.kind {
		case tkVariable:
			o := obs.Get(tk.text)
			st.push(entry{v: o.Estimate, e: o.Error})
		case tkLiteral:
			// a literal is exact but carries itself in the error slot; only the scale operators ever see it
			st.push(entry{v: Float(tk.literal), e: Float(tk.literal)})
		case tkOperator:
			out := apply(tk.op, &st, &res)
			st.push(out)
		}
	}

	top := st.pop()
	res.Value, res.Error = clone(top.v), clone(top.e)

	return res
}

// ***************** Unexported *****************

// scan classifies a single token
func (f *Formula) scan(field string) (token, error) {
	if op, ok := lookupOperator(field); ok {
		return token{kind: tkOperator, text: field, op: op}, nil
	}

	for _, p := range f.prefixes {
		if strings.HasPrefix(field, p) {
			return token{kind: tkVariable, text: field}, nil
		}
	}

	if x, e := strconv.ParseFloat(field, 64); e == nil {
		return token{kind: tkLiteral, text: field, literal: x}, nil
	}

	return token{}, ErrInvalidToken
}

// apply pops the operands of op from st and returns the result. A "/" records its numerator in res.
func apply(op Operator, st *stack, res *Result) entry {
	switch op {
	case OpPercent, OpRate:
		b := st.pop()
		if b.v == nil {
			return entry{}
		}

		scale := Percentify
		if op == OpRate {
			scale = Rateify
		}

		out := entry{v: Float(scale(*b.v))}
		if b.e != nil {
			out.e = Float(scale(*b.e))
		}

		return out
	case OpAdd, OpSub:
		b := st.pop()
		a := st.pop()
		if a.v == nil || b.v == nil {
			return entry{}
		}

		c := *a.v + *b.v
		if op == OpSub {
			c = *a.v - *b.v
		}

		return entry{v: Float(c), e: Float(MOEAdd(moe(a.e), moe(b.e)))}
	case OpRatio:
		b := st.pop()
		a := st.pop()
		if a.v == nil || b.v == nil {
			return entry{}
		}

		res.Numerator = Float(*a.v)
		res.NumeratorError = roundPtr(a.e, 1)

		if *a.v == 0 || *b.v == 0 {
			return entry{v: Float(0), e: Float(0)}
		}

		return entry{v: Float(*a.v / *b.v), e: Float(MOEProportion(*a.v, *b.v, moe(a.e), moe(b.e)))}
	default:
		panic(fmt.Errorf("unknown operator %d", uint8(op)))
	}
}

// moe treats a missing margin of error as exact
func moe(x *float64) float64 {
	if x == nil {
		return 0
	}

	return *x
}

func clone(x *float64) *float64 {
	if x == nil {
		return nil
	}

	return Float(*x)
}

type entry struct {
	v *float64
	e *float64
}

// stack holds value/error pairs so the two always stay aligned
type stack []entry

func (s *stack) push(x entry) {
	*s = append(*s, x)
}

// pop is only called on formulas that passed ParseFormula, so the stack cannot underflow.
func (s *stack) pop() entry {
	n := len(*s) - 1
	x := (*s)[n]
	*s = (*s)[:n]

	return x
}
