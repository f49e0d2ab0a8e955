package profile

import "fmt"

// Operator is an operator of the formula language.
type Operator uint8

// values of Operator
const (
	OpAdd Operator = 1 + iota
	OpSub
	OpRatio
	OpPercent
	OpRate
)

var opSymbols = map[string]Operator{
	"+":  OpAdd,
	"-":  OpSub,
	"/":  OpRatio,
	"%":  OpPercent,
	"%%": OpRate,
}

func lookupOperator(symbol string) (Operator, bool) {
	op, ok := opSymbols[symbol]
	return op, ok
}

func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpRatio:
		return "/"
	case OpPercent:
		return "%"
	case OpRate:
		return "%%"
	default:
		return fmt.Sprintf("Operator(%d)", uint8(op))
	}
}

// Arity is the number of stack entries op consumes.
func (op Operator) Arity() int {
	switch op {
	case OpPercent, OpRate:
		return 1
	case OpAdd, OpSub, OpRatio:
		return 2
	default:
		panic(fmt.Errorf("unknown operator %d", uint8(op)))
	}
}
