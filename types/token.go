// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// Token names one of the dialect's declarable types. Tokens appear as
// parameter annotations, as event parameter types, and as conversion
// callables inside contract code.
type Token uint8

const (
	TokenInvalid Token = iota
	TokenInt
	TokenString
	TokenBool
	TokenDecimal
	TokenDatetime
	TokenTimedelta
	TokenDict
	TokenList
	TokenAny
)

var tokenNames = map[Token]string{
	TokenInt:       "int",
	TokenString:    "string",
	TokenBool:      "bool",
	TokenDecimal:   "decimal",
	TokenDatetime:  "datetime",
	TokenTimedelta: "timedelta",
	TokenDict:      "dict",
	TokenList:      "list",
	TokenAny:       "any",
}

var tokensByName = func() map[string]Token {
	out := make(map[string]Token, len(tokenNames))
	for tok, name := range tokenNames {
		out[name] = tok
	}
	return out
}()

// TokenByName resolves a dialect type name.
func TokenByName(name string) (Token, bool) {
	tok, ok := tokensByName[name]
	return tok, ok
}

// TokenNames returns every declarable type name.
func TokenNames() []string {
	out := make([]string, 0, len(tokensByName))
	for name := range tokensByName {
		out = append(out, name)
	}
	return out
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "invalid"
}

// Primitive reports whether values of this type may back an indexed
// event field.
func (t Token) Primitive() bool {
	switch t {
	case TokenInt, TokenString, TokenBool, TokenDecimal:
		return true
	default:
		return false
	}
}

// Matches reports whether v is an instance of t. TokenAny matches every
// value, including nil.
func (t Token) Matches(v Value) bool {
	switch t {
	case TokenAny:
		return true
	case TokenInt:
		_, ok := v.(int64)
		return ok
	case TokenString:
		_, ok := v.(string)
		return ok
	case TokenBool:
		_, ok := v.(bool)
		return ok
	case TokenDecimal:
		_, ok := v.(Decimal)
		return ok
	case TokenDatetime:
		_, ok := v.(Datetime)
		return ok
	case TokenTimedelta:
		_, ok := v.(Timedelta)
		return ok
	case TokenDict:
		_, ok := v.(Dict)
		return ok
	case TokenList:
		_, ok := v.(List)
		return ok
	default:
		return false
	}
}
