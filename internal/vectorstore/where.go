package vectorstore

import "time"

// TimeLayout is the fixed-width RFC 3339 encoding used for timestamp
// metadata. Fixed fractional digits keep lexical order equal to temporal
// order, which in-process predicate evaluation relies on.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Operator enumerates the predicate operations every backend must support.
type Operator string

const (
	OpEqual            Operator = "Equal"
	OpGreaterThanEqual Operator = "GreaterThanEqual"
	OpLessThanEqual    Operator = "LessThanEqual"
	OpAnd              Operator = "And"
	OpOr               Operator = "Or"
)

// Where is a backend-neutral predicate tree over scalar metadata fields.
// Leaves carry Field/Value; And/Or nodes carry Operands.
type Where struct {
	Operator Operator
	Field    string
	Value    interface{}
	Operands []*Where
}

// Eq builds an equality leaf.
func Eq(field string, value interface{}) *Where {
	return &Where{Operator: OpEqual, Field: field, Value: value}
}

// Gte builds a greater-than-or-equal leaf.
func Gte(field string, value interface{}) *Where {
	return &Where{Operator: OpGreaterThanEqual, Field: field, Value: value}
}

// Lte builds a less-than-or-equal leaf.
func Lte(field string, value interface{}) *Where {
	return &Where{Operator: OpLessThanEqual, Field: field, Value: value}
}

// And combines predicates; nil operands are dropped. Returns nil when no
// operands remain so callers can pass the result straight to List/Query.
func And(ops ...*Where) *Where {
	return combine(OpAnd, ops)
}

// Or combines predicates; nil operands are dropped.
func Or(ops ...*Where) *Where {
	return combine(OpOr, ops)
}

func combine(op Operator, ops []*Where) *Where {
	kept := make([]*Where, 0, len(ops))
	for _, o := range ops {
		if o != nil {
			kept = append(kept, o)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &Where{Operator: op, Operands: kept}
}

// Matches evaluates w against scalar metadata in-process. Backends that
// cannot push predicates down (and the test fake) use it as their filter.
func (w *Where) Matches(meta map[string]interface{}) bool {
	if w == nil {
		return true
	}
	switch w.Operator {
	case OpAnd:
		for _, o := range w.Operands {
			if !o.Matches(meta) {
				return false
			}
		}
		return true
	case OpOr:
		for _, o := range w.Operands {
			if o.Matches(meta) {
				return true
			}
		}
		return false
	case OpEqual:
		return equalValue(meta[w.Field], w.Value)
	case OpGreaterThanEqual:
		have, ok := meta[w.Field]
		if !ok || have == nil {
			return false
		}
		return compareValue(have, w.Value) >= 0
	case OpLessThanEqual:
		have, ok := meta[w.Field]
		if !ok || have == nil {
			return false
		}
		return compareValue(have, w.Value) <= 0
	}
	return false
}

// equalValue compares scalars of the same kind; mismatched dynamic types
// (or an absent field) never compare equal.
func equalValue(have, want interface{}) bool {
	switch h := have.(type) {
	case string:
		w, ok := want.(string)
		return ok && h == w
	case bool:
		w, ok := want.(bool)
		return ok && h == w
	case float64, float32, int, int64:
		switch want.(type) {
		case float64, float32, int, int64:
			return toFloat(have) == toFloat(want)
		}
	}
	return false
}

// compareValue orders strings lexically (RFC 3339 timestamps order correctly
// this way) and numbers numerically. A time.Time want is rendered in
// TimeLayout before the lexical compare. Matches filters out absent values
// before calling; range predicates never see nil.
func compareValue(have, want interface{}) int {
	hs, hok := have.(string)
	ws, wok := want.(string)
	if hok && wok {
		switch {
		case hs < ws:
			return -1
		case hs > ws:
			return 1
		}
		return 0
	}
	if wt, ok := want.(time.Time); ok && hok {
		ws = wt.UTC().Format(TimeLayout)
		switch {
		case hs < ws:
			return -1
		case hs > ws:
			return 1
		}
		return 0
	}
	hf, wf := toFloat(have), toFloat(want)
	switch {
	case hf < wf:
		return -1
	case hf > wf:
		return 1
	}
	return 0
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
