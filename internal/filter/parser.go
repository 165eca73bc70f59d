package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota // field path or keyword (AND/OR/NOT/contains/matches)
	tokOp                    // ==, !=, >=, <=, >, <
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
}

func scan(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case unicode.IsSpace(rune(ch)):
			i++
		case ch == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case ch == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			if i+1 < len(expr) && expr[i+1] == '=' {
				toks = append(toks, token{tokOp, expr[i : i+2]})
				i += 2
			} else if ch == '<' || ch == '>' {
				toks = append(toks, token{tokOp, string(ch)})
				i++
			} else {
				return nil, fmt.Errorf("unexpected %q at position %d", ch, i)
			}
		case ch == '"' || ch == '\'':
			j := i + 1
			for j < len(expr) && expr[j] != ch {
				j++
			}
			if j >= len(expr) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			toks = append(toks, token{tokString, expr[i+1 : j]})
			i = j + 1
		case unicode.IsDigit(rune(ch)) || ch == '-':
			j := i + 1
			for j < len(expr) && (unicode.IsDigit(rune(expr[j])) || expr[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, expr[i:j]})
			i = j
		case unicode.IsLetter(rune(ch)) || ch == '_':
			j := i
			for j < len(expr) && (unicode.IsLetter(rune(expr[j])) || unicode.IsDigit(rune(expr[j])) || expr[j] == '_' || expr[j] == '.') {
				j++
			}
			toks = append(toks, token{tokWord, expr[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected %q at position %d", ch, i)
		}
	}
	return append(toks, token{tokEOF, ""}), nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	return t.kind == tokWord && strings.EqualFold(t.val, kw)
}

// parseOr = parseAnd ( "OR" parseAnd )*
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right}
	}
	return left, nil
}

// parseAnd = parseUnary ( "AND" parseUnary )*
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right}
	}
	return left, nil
}

// parseUnary = "NOT" parseUnary | "(" parseOr ")" | comparison
func (p *parser) parseUnary() (node, error) {
	if p.keyword("NOT") {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ) but got %q", p.peek().val)
		}
		p.next()
		return inner, nil
	}
	return p.parseComparison()
}

// comparison = field_path operator literal
func (p *parser) parseComparison() (node, error) {
	t := p.next()
	if t.kind != tokWord {
		return nil, fmt.Errorf("expected field path, got %q", t.val)
	}
	n := &cmpNode{path: strings.Split(t.val, ".")}

	op := p.next()
	switch {
	case op.kind == tokOp:
		n.op = op.val
	case op.kind == tokWord && strings.EqualFold(op.val, "contains"):
		n.op = "contains"
	case op.kind == tokWord && strings.EqualFold(op.val, "matches"):
		n.op = "matches"
	default:
		return nil, fmt.Errorf("expected operator, got %q", op.val)
	}

	lit := p.next()
	switch lit.kind {
	case tokString:
		n.lit = lit.val
	case tokNumber:
		f, err := strconv.ParseFloat(lit.val, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", lit.val)
		}
		n.lit = f
	case tokWord:
		switch strings.ToLower(lit.val) {
		case "true":
			n.lit = true
		case "false":
			n.lit = false
		default:
			return nil, fmt.Errorf("expected literal, got %q", lit.val)
		}
	default:
		return nil, fmt.Errorf("expected literal, got %q", lit.val)
	}

	if n.op == "matches" {
		s, ok := n.lit.(string)
		if !ok {
			return nil, fmt.Errorf("matches requires a string pattern")
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s, err)
		}
		n.re = re
	}
	return n, nil
}
