// Package value implements the Language's sole runtime data types: the
// Primitive scalar union and the Item field map built from it.
package value

import (
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var foldCaser = cases.Fold()

// FoldCase performs Unicode-aware case folding, used everywhere the
// Language compares strings case-insensitively (keyword names, `like`,
// `==` on strings) instead of ASCII-only strings.ToLower.
func FoldCase(s string) string {
	return foldCaser.String(s)
}

var lowerCaser = cases.Lower(language.Und)

// Lower lowercases a field name for storage in an Item (field names are
// always compared and stored case-insensitively, per the data model).
func Lower(s string) string {
	return lowerCaser.String(s)
}

// Kind tags the active variant of a Primitive.
type Kind int

const (
	KindString Kind = iota
	KindUInt
	KindInt
	KindFloat
	KindBool
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindUInt:
		return "UInt"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindEmpty:
		return "Empty"
	default:
		return "?"
	}
}

// Primitive is the Language's scalar value: exactly one of
// String, UInt(u64), Int(i64), Float(f64), Bool, or Empty.
type Primitive struct {
	kind Kind
	s    string
	u    uint64
	i    int64
	f    float64
	b    bool
}

func Str(s string) Primitive     { return Primitive{kind: KindString, s: s} }
func UInt(u uint64) Primitive    { return Primitive{kind: KindUInt, u: u} }
func Int(i int64) Primitive      { return Primitive{kind: KindInt, i: i} }
func Float(f float64) Primitive  { return Primitive{kind: KindFloat, f: f} }
func Bool(b bool) Primitive      { return Primitive{kind: KindBool, b: b} }
func Empty() Primitive           { return Primitive{kind: KindEmpty} }

func (p Primitive) Kind() Kind { return p.kind }

// ParseLiteral converts backtick-literal or bare-token text into a
// Primitive: integer if it parses as such, else float, else the string
// itself; "true"/"false" fold to Bool; the empty string is Empty.
func ParseLiteral(s string) Primitive {
	if s == "" {
		return Empty()
	}
	switch FoldCase(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if s[0] != '-' {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return UInt(u)
		}
	} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return Str(s)
}

// String renders the Primitive's string form, used for `like`, regex
// matching, hashing, and printing.
func (p Primitive) String() string {
	switch p.kind {
	case KindString:
		return p.s
	case KindUInt:
		return strconv.FormatUint(p.u, 10)
	case KindInt:
		return strconv.FormatInt(p.i, 10)
	case KindFloat:
		return strconv.FormatFloat(p.f, 'g', -1, 64)
	case KindBool:
		if p.b {
			return "true"
		}
		return "false"
	case KindEmpty:
		return ""
	default:
		return ""
	}
}

// ToU64 converts to a non-negative integer count, as needed by empties(n)
// and repeat(op, n). Returns false if the primitive isn't representable
// as a u64 (negative Int, non-integral Float, non-numeric String/Bool).
func (p Primitive) ToU64() (uint64, bool) {
	switch p.kind {
	case KindUInt:
		return p.u, true
	case KindInt:
		if p.i < 0 {
			return 0, false
		}
		return uint64(p.i), true
	case KindFloat:
		if p.f < 0 || p.f != float64(uint64(p.f)) {
			return 0, false
		}
		return uint64(p.f), true
	case KindString:
		u, err := strconv.ParseUint(p.s, 10, 64)
		return u, err == nil
	default:
		return 0, false
	}
}

func (p Primitive) toF64() (float64, bool) {
	switch p.kind {
	case KindUInt:
		return float64(p.u), true
	case KindInt:
		return float64(p.i), true
	case KindFloat:
		return p.f, true
	default:
		return 0, false
	}
}

// IsEmpty reports whether the primitive is the Empty variant or a blank
// string, the condition the `nonempty` filter tests against.
func (p Primitive) IsEmpty() bool {
	return p.kind == KindEmpty || (p.kind == KindString && p.s == "")
}

// Truthy is used by field-as-predicate (`.(field)` with no operator) and
// by item-block branch conditions: non-empty/non-zero/true.
func (p Primitive) Truthy() bool {
	switch p.kind {
	case KindEmpty:
		return false
	case KindBool:
		return p.b
	case KindString:
		return p.s != ""
	case KindUInt:
		return p.u != 0
	case KindInt:
		return p.i != 0
	case KindFloat:
		return p.f != 0
	default:
		return false
	}
}

// Equal reports value equality, comparing numeric kinds across
// representations (UInt(2) == Int(2) == Float(2)).
func (p Primitive) Equal(o Primitive) bool {
	if p.kind == KindString && o.kind == KindString {
		return FoldCase(p.s) == FoldCase(o.s)
	}
	if pf, ok := p.toF64(); ok {
		if of, ok2 := o.toF64(); ok2 {
			return pf == of
		}
	}
	if p.kind == KindBool && o.kind == KindBool {
		return p.b == o.b
	}
	if p.kind == KindEmpty && o.kind == KindEmpty {
		return true
	}
	return false
}

// Compare orders two primitives for <, <=, >, >= and for field sorting.
// Numeric kinds compare numerically; strings compare case-folded
// lexically. Incomparable kinds (e.g. String vs numeric, Bool vs
// anything) return an error, per the item-block's type-error rule.
func (p Primitive) Compare(o Primitive) (int, error) {
	if pf, ok := p.toF64(); ok {
		if of, ok2 := o.toF64(); ok2 {
			switch {
			case pf < of:
				return -1, nil
			case pf > of:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if p.kind == KindString && o.kind == KindString {
		a, b := FoldCase(p.s), FoldCase(o.s)
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s to %s", p.kind, o.kind)
}

// Add implements the item-block's binary `+`: numeric addition for
// numeric operands, concatenation for two strings.
func (p Primitive) Add(o Primitive) (Primitive, error) {
	if p.kind == KindString || o.kind == KindString {
		if p.kind == KindString && o.kind == KindString {
			return Str(p.s + o.s), nil
		}
		return Primitive{}, fmt.Errorf("cannot add %s to %s", p.kind, o.kind)
	}
	if p.kind == KindFloat || o.kind == KindFloat {
		pf, _ := p.toF64()
		of, _ := o.toF64()
		return Float(pf + of), nil
	}
	if p.kind == KindInt || o.kind == KindInt {
		pi, ok1 := p.toI64()
		oi, ok2 := o.toI64()
		if !ok1 || !ok2 {
			return Primitive{}, fmt.Errorf("cannot add %s to %s", p.kind, o.kind)
		}
		return Int(pi + oi), nil
	}
	if p.kind == KindUInt && o.kind == KindUInt {
		return UInt(p.u + o.u), nil
	}
	return Primitive{}, fmt.Errorf("cannot add %s to %s", p.kind, o.kind)
}

// Sub implements the item-block's binary `-` and unary negation (0 - p).
func (p Primitive) Sub(o Primitive) (Primitive, error) {
	if p.kind == KindFloat || o.kind == KindFloat {
		pf, ok1 := p.toF64()
		of, ok2 := o.toF64()
		if !ok1 || !ok2 {
			return Primitive{}, fmt.Errorf("cannot subtract %s from %s", o.kind, p.kind)
		}
		return Float(pf - of), nil
	}
	pi, ok1 := p.toI64()
	oi, ok2 := o.toI64()
	if !ok1 || !ok2 {
		return Primitive{}, fmt.Errorf("cannot subtract %s from %s", o.kind, p.kind)
	}
	return Int(pi - oi), nil
}

func (p Primitive) toI64() (int64, bool) {
	switch p.kind {
	case KindInt:
		return p.i, true
	case KindUInt:
		return int64(p.u), true
	case KindFloat:
		return int64(p.f), true
	default:
		return 0, false
	}
}

// Negate implements unary `-`.
func (p Primitive) Negate() (Primitive, error) {
	return Int(0).Sub(p)
}

// Not implements unary logical `!`.
func (p Primitive) Not() Primitive {
	return Bool(!p.Truthy())
}
