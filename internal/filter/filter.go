// Package filter implements the per-input event filter language: boolean
// combinations of comparisons against fields of a normalized record, e.g.
//
//	action contains "login" AND NOT actor.user == "svc-backup"
//
// Expressions are compiled once at config load and evaluated per event.
package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

// Filter is a compiled expression.
type Filter struct {
	root node
}

// Compile parses and validates an expression. Regular expressions used
// with "matches" are compiled here so config errors surface at startup,
// not mid-poll.
func Compile(expr string) (*Filter, error) {
	toks, err := scan(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q after expression", p.peek().val)
	}
	return &Filter{root: root}, nil
}

// Match reports whether the record satisfies the expression. A field path
// that does not resolve makes its comparison false rather than erroring:
// audit records are open mappings and absent keys are routine.
func (f *Filter) Match(rec event.Record) bool {
	return f.root.eval(rec)
}

type node interface {
	eval(rec event.Record) bool
}

type andNode struct{ left, right node }
type orNode struct{ left, right node }
type notNode struct{ inner node }

func (n *andNode) eval(rec event.Record) bool { return n.left.eval(rec) && n.right.eval(rec) }
func (n *orNode) eval(rec event.Record) bool { return n.left.eval(rec) || n.right.eval(rec) }
func (n *notNode) eval(rec event.Record) bool { return !n.inner.eval(rec) }

type cmpNode struct {
	path []string
	op   string
	lit  interface{}
	re   *regexp.Regexp // set only for "matches"
}

func (n *cmpNode) eval(rec event.Record) bool {
	val, ok := resolve(rec, n.path)
	if !ok {
		return false
	}
	switch n.op {
	case "==":
		return equal(val, n.lit)
	case "!=":
		return !equal(val, n.lit)
	case ">", ">=", "<", "<=":
		a, aok := toFloat(val)
		b, bok := toFloat(n.lit)
		if !aok || !bok {
			return false
		}
		switch n.op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		default:
			return a <= b
		}
	case "contains":
		s, sok := val.(string)
		sub, lok := n.lit.(string)
		return sok && lok && strings.Contains(s, sub)
	case "matches":
		s, sok := val.(string)
		return sok && n.re.MatchString(s)
	}
	return false
}

// resolve walks a dot path through nested maps, so "actor.user" reaches
// into the decoded actor mapping.
func resolve(rec event.Record, path []string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(rec)
	for _, seg := range path {
		switch m := cur.(type) {
		case map[string]interface{}:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case event.Record:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func equal(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
