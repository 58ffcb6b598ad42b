package ir

import (
	"fmt"
	"go/token"
)

// IsRelational reports whether op is a relational comparison operator.
func IsRelational(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

// Negate returns the logical negation of a relational operator, i.e. the
// predicate that holds exactly when op does not.
func Negate(op token.Token) token.Token {
	switch op {
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	}
	panic(fmt.Sprintf("ir: negate of non-relational operator %s", op))
}

// Mirror returns the predicate equivalent to op with its operands swapped,
// e.g. x < y holds exactly when y > x.
func Mirror(op token.Token) token.Token {
	switch op {
	case token.EQL, token.NEQ:
		return op
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	}
	panic(fmt.Sprintf("ir: mirror of non-relational operator %s", op))
}
