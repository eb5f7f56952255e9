package visibility

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokKey tokenKind = iota
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case strings.HasPrefix(input[i:], "=="):
			tokens = append(tokens, token{tokEq, "=="})
			i += 2
		case strings.HasPrefix(input[i:], "!="):
			tokens = append(tokens, token{tokNeq, "!="})
			i += 2
		case strings.HasPrefix(input[i:], "&&"):
			tokens = append(tokens, token{tokAnd, "&&"})
			i += 2
		case strings.HasPrefix(input[i:], "||"):
			tokens = append(tokens, token{tokOr, "||"})
			i += 2
		case c == '!':
			tokens = append(tokens, token{tokNot, "!"})
			i++
		case c == '"' || c == '\'':
			text, n, err := lexString(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, text})
			i += n
		case c == '-' || isDigit(c):
			j := i + 1
			for j < len(input) && (isDigit(input[j]) || input[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, input[i:j]})
			i = j
		case isKeyByte(c):
			j := i
			for j < len(input) && isKeyByte(input[j]) {
				j++
			}
			text := input[i:j]
			switch text {
			case "true":
				tokens = append(tokens, token{tokTrue, text})
			case "false":
				tokens = append(tokens, token{tokFalse, text})
			case "null":
				tokens = append(tokens, token{tokNull, text})
			default:
				tokens = append(tokens, token{tokKey, text})
			}
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, c, i)
		}
	}
	return tokens, nil
}

// lexString reads a quoted literal and returns its unescaped text and the
// number of bytes consumed.
func lexString(input string) (string, int, error) {
	quote := input[0]
	var b strings.Builder
	for i := 1; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			i++
			b.WriteByte(input[i])
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string %s", ErrSyntax, input)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isKeyByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' || c == '[' || c == ']' ||
		isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{kind: -1}
	}
	return p.tokens[p.pos]
}

func (p *parser) accept(kind tokenKind) bool {
	if !p.done() && p.tokens[p.pos].kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(tokLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		return inner, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	switch {
	case p.accept(tokEq):
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compareNode{left: left, right: right}, nil
	case p.accept(tokNeq):
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		return compareNode{left: left, right: right, negate: true}, nil
	}
	return truthyNode{left}, nil
}

func (p *parser) operand() (operand, error) {
	if p.done() {
		return operand{}, fmt.Errorf("%w: unexpected end of rule", ErrSyntax)
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokKey:
		return operand{key: tok.text}, nil
	case tokString:
		return operand{literal: true, value: tok.text}, nil
	case tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return operand{}, fmt.Errorf("%w: bad number %q", ErrSyntax, tok.text)
		}
		return operand{literal: true, value: n}, nil
	case tokTrue:
		return operand{literal: true, value: true}, nil
	case tokFalse:
		return operand{literal: true, value: false}, nil
	case tokNull:
		return operand{literal: true}, nil
	default:
		return operand{}, fmt.Errorf("%w: unexpected %q", ErrSyntax, tok.text)
	}
}

type node interface {
	eval(ctx Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok, err
}

type truthyNode struct{ operand operand }

func (n truthyNode) eval(ctx Context) (bool, error) {
	return truthy(n.operand.resolve(ctx)), nil
}

type compareNode struct {
	left, right operand
	negate      bool
}

func (n compareNode) eval(ctx Context) (bool, error) {
	return equal(n.left.resolve(ctx), n.right.resolve(ctx)) != n.negate, nil
}

type operand struct {
	key     string
	literal bool
	value   any
}

// resolve returns nil for keys that are absent.
func (o operand) resolve(ctx Context) any {
	if o.literal {
		return o.value
	}
	if name, ok := strings.CutPrefix(o.key, "extras."); ok {
		return ctx.Extras[name]
	}
	if ctx.Values == nil {
		return nil
	}
	value, _ := ctx.Values(o.key)
	return value
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := number(value); ok {
		return n != 0
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	if x, ok := a.(bool); ok {
		y, ok := b.(bool)
		return ok && x == y
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}
