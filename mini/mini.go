// Package mini implements the compact rhythm-string sub-language (spec §4.2):
// a recursive-descent parser that compiles a mini-notation string into a
// pattern.Pattern[string], attaching per-token context (sample_index,
// begin/end slice fractions come from the outer pattern combinators, not
// this parser) along the way.
//
// The grammar is combinator-shaped on purpose: each production returns a
// pattern.Pattern[string] built directly out of the pattern package's own
// constructors (Cat, SlowCat, Stack, Fast, Slow, EuclidNamed), so the parser
// never reimplements pattern semantics — it only ever assembles them.
package mini

import (
	"fmt"
	"strconv"

	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// ParseError reports a malformed mini-notation string with its position,
// matching the engine-wide parse error contract (spec §5 "Parse error —
// reported with file, line, column, context").
type ParseError struct {
	Source string
	Pos    int
	Line   int
	Col    int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mini-notation %d:%d: %s (in %q)", e.Line, e.Col, e.Msg, e.Source)
}

// Parse compiles src into a Pattern[string]. src is retained verbatim on the
// returned value's canonical source string for hot-reload diffing.
func Parse(src string) (pattern.Pattern[string], error) {
	p := &parser{src: src, toks: lex(src)}
	seq, err := p.parseStack()
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	if !p.atEnd() {
		return pattern.Pattern[string]{}, p.errorf("unexpected trailing input")
	}
	return seq, nil
}

// MustParse is a convenience wrapper for callers (tests, the DSL builder's
// literal folding) that already know src is well-formed.
func MustParse(src string) pattern.Pattern[string] {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

// --- lexer -----------------------------------------------------------------

type tokenKind int

const (
	tokAtom tokenKind = iota
	tokRest
	tokLBracket
	tokRBracket
	tokLAngle
	tokRAngle
	tokComma
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokColon
	tokEOF
)

type token struct {
	kind      tokenKind
	text      string
	pos       int
	line, col int
}

func lex(src string) []token {
	var toks []token
	line, col := 1, 1
	advance := func(n int) {
		for i := 0; i < n; i++ {
			if src[0] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			src = src[1:]
		}
	}
	pos := 0
	for len(src) > 0 {
		c := src[0]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
			advance(1)
			continue
		case c == '~':
			toks = append(toks, token{tokRest, "~", pos, line, col})
			pos++
			advance(1)
		case c == '[':
			toks = append(toks, token{tokLBracket, "[", pos, line, col})
			pos++
			advance(1)
		case c == ']':
			toks = append(toks, token{tokRBracket, "]", pos, line, col})
			pos++
			advance(1)
		case c == '<':
			toks = append(toks, token{tokLAngle, "<", pos, line, col})
			pos++
			advance(1)
		case c == '>':
			toks = append(toks, token{tokRAngle, ">", pos, line, col})
			pos++
			advance(1)
		case c == ',':
			toks = append(toks, token{tokComma, ",", pos, line, col})
			pos++
			advance(1)
		case c == '*':
			toks = append(toks, token{tokStar, "*", pos, line, col})
			pos++
			advance(1)
		case c == '/':
			toks = append(toks, token{tokSlash, "/", pos, line, col})
			pos++
			advance(1)
		case c == '(':
			toks = append(toks, token{tokLParen, "(", pos, line, col})
			pos++
			advance(1)
		case c == ')':
			toks = append(toks, token{tokRParen, ")", pos, line, col})
			pos++
			advance(1)
		case c == ':':
			toks = append(toks, token{tokColon, ":", pos, line, col})
			pos++
			advance(1)
		default:
			start, startLine, startCol := pos, line, col
			n := 0
			for n < len(src) && !isDelim(src[n]) {
				n++
			}
			if n == 0 {
				n = 1 // unknown single char, let the parser reject it as an atom
			}
			toks = append(toks, token{tokAtom, src[:n], start, startLine, startCol})
			pos += n
			advance(n)
		}
	}
	toks = append(toks, token{tokEOF, "", pos, line, col})
	return toks
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '~', '[', ']', '<', '>', ',', '*', '/', '(', ')', ':':
		return true
	default:
		return false
	}
}

// --- parser ------------------------------------------------------------

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token   { return p.toks[p.i] }
func (p *parser) atEnd() bool   { return p.peek().kind == tokEOF }
func (p *parser) advance() token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	t := p.peek()
	return &ParseError{Source: p.src, Pos: t.pos, Line: t.line, Col: t.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.peek().kind != k {
		return token{}, p.errorf("expected %s", what)
	}
	return p.advance(), nil
}

// parseStack parses a comma-separated list of sequences into a Stack (the
// "Layer" production, also used at the top level so "a b, c d" stacks two
// full-cycle sequences).
func (p *parser) parseStack() (pattern.Pattern[string], error) {
	first, err := p.parseSequence(tokEOF)
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	layers := []pattern.Pattern[string]{first}
	for p.peek().kind == tokComma {
		p.advance()
		next, err := p.parseSequence(tokEOF)
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		layers = append(layers, next)
	}
	if len(layers) == 1 {
		return layers[0], nil
	}
	return pattern.Stack(layers), nil
}

// parseSequence parses space-separated terms until a token of kind `stop`
// (or a structural closer the caller is responsible for consuming) is seen.
func (p *parser) parseSequence(stop tokenKind) (pattern.Pattern[string], error) {
	var terms []pattern.Pattern[string]
	for {
		k := p.peek().kind
		if k == stop || k == tokEOF || k == tokRBracket || k == tokRAngle || k == tokComma {
			break
		}
		term, err := p.parseModified()
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return pattern.Silence[string](), nil
	}
	return pattern.Cat(terms), nil
}

// parseModified parses one base term followed by any number of postfix
// modifiers: "*n" (fast), "/n" (slow), "(k,n,r?)" (euclidean), ":k" (sample
// variant).
func (p *parser) parseModified() (pattern.Pattern[string], error) {
	term, err := p.parseTerm()
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	for {
		switch p.peek().kind {
		case tokStar:
			p.advance()
			n, err := p.parseFactor()
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			term = pattern.FastF(n, term)
		case tokSlash:
			p.advance()
			n, err := p.parseFactor()
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			term = pattern.SlowF(n, term)
		case tokLParen:
			term, err = p.parseEuclid(term)
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
		case tokColon:
			p.advance()
			idxTok, err := p.expect(tokAtom, "sample index")
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			term = attachContext(term, "sample_index", idxTok.text)
		default:
			return term, nil
		}
	}
}

// parseFactor parses the numeric (or bracketed sub-pattern) argument of * or
// /. Only plain numeric literals are supported directly; a bracketed
// sub-pattern argument like "a*<2 3>" degrades to its first cycle's value,
// since the factor must resolve to a float for FastF/SlowF at parse time in
// this combinator-based front end.
func (p *parser) parseFactor() (float64, error) {
	if p.peek().kind == tokLAngle || p.peek().kind == tokLBracket {
		sub, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		haps := sub.QuerySpan(rational.NewSpan(rational.Zero, rational.One), nil)
		if len(haps) == 0 {
			return 1, nil
		}
		f, err := strconv.ParseFloat(haps[0].Value, 64)
		if err != nil {
			return 1, nil
		}
		return f, nil
	}
	tok, err := p.expect(tokAtom, "number")
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", tok.text)
	}
	return f, nil
}

// parseEuclid parses "(k,n,r?)" following a base term and builds the
// euclidean trigger pattern fmap'd back to the base term's (single) atom
// value.
func (p *parser) parseEuclid(term pattern.Pattern[string]) (pattern.Pattern[string], error) {
	p.advance() // consume '('
	k, err := p.parseInt()
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	if _, err := p.expect(tokComma, "','"); err != nil {
		return pattern.Pattern[string]{}, err
	}
	n, err := p.parseInt()
	if err != nil {
		return pattern.Pattern[string]{}, err
	}
	r := 0
	if p.peek().kind == tokComma {
		p.advance()
		r, err = p.parseInt()
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return pattern.Pattern[string]{}, err
	}

	atom := atomValue(term)
	return pattern.EuclidNamed(atom, k, n, r), nil
}

func (p *parser) parseInt() (int, error) {
	tok, err := p.expect(tokAtom, "integer")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorf("invalid integer %q", tok.text)
	}
	return n, nil
}

// parseTerm parses one base term: atom, rest, group, or alternation.
func (p *parser) parseTerm() (pattern.Pattern[string], error) {
	switch p.peek().kind {
	case tokRest:
		p.advance()
		return pattern.Silence[string](), nil
	case tokAtom:
		tok := p.advance()
		return pattern.Pure(tok.text), nil
	case tokLBracket:
		p.advance()
		inner, err := p.parseStack()
		if err != nil {
			return pattern.Pattern[string]{}, err
		}
		if _, err := p.expect(tokRBracket, "']'"); err != nil {
			return pattern.Pattern[string]{}, err
		}
		return inner, nil
	case tokLAngle:
		p.advance()
		var alts []pattern.Pattern[string]
		for p.peek().kind != tokRAngle && p.peek().kind != tokEOF {
			t, err := p.parseModified()
			if err != nil {
				return pattern.Pattern[string]{}, err
			}
			alts = append(alts, t)
		}
		if _, err := p.expect(tokRAngle, "'>'"); err != nil {
			return pattern.Pattern[string]{}, err
		}
		if len(alts) == 0 {
			return pattern.Silence[string](), nil
		}
		return pattern.SlowCat(alts), nil
	default:
		return pattern.Pattern[string]{}, p.errorf("unexpected token %q", p.peek().text)
	}
}

// atomValue extracts the single literal value out of a term that is known
// (by grammar position, immediately after parseTerm) to be a plain Pure
// atom — the only legal base for a euclidean expression.
func atomValue(term pattern.Pattern[string]) string {
	haps := term.QuerySpan(rational.NewSpan(rational.Zero, rational.One), nil)
	if len(haps) == 0 {
		return ""
	}
	return haps[0].Value
}

func attachContext(p pattern.Pattern[string], key, val string) pattern.Pattern[string] {
	return pattern.Pattern[string]{Query: func(s pattern.State) []pattern.Hap[string] {
		in := p.Query(s)
		out := make([]pattern.Hap[string], len(in))
		for i, h := range in {
			ctx := make(map[string]string, len(h.Context)+1)
			for k, v := range h.Context {
				ctx[k] = v
			}
			ctx[key] = val
			out[i] = pattern.Hap[string]{Whole: h.Whole, Part: h.Part, Value: h.Value, Context: ctx}
		}
		return out
	}}
}
