package symbol

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// Parse converts an expression in infix notation into normal form. The
// grammar covers everything theorem scripts are allowed to emit: integer and
// decimal literals, unknown identifiers, unary minus, + - * / ^ and
// parentheses. Division is only defined by constant divisors, exponents must
// be non-negative integers.
func Parse(input string) (*Expr, error) {
	p := &parser{src: input}
	e, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("symbol: unexpected %q at offset %d in %q", p.src[p.pos], p.pos, input)
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseSum() (*Expr, error) {
	e, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			e = e.Add(rhs)
		case '-':
			p.pos++
			rhs, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			e = e.Sub(rhs)
		default:
			return e, nil
		}
	}
}

func (p *parser) parseProduct() (*Expr, error) {
	e, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			e = e.Mul(rhs)
		case '/':
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			e, err = e.Div(rhs)
			if err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePower() (*Expr, error) {
	e, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek() != '^' {
		return e, nil
	}
	p.pos++
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && unicode.IsDigit(rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("symbol: exponent must be a non-negative integer at offset %d", start)
	}
	exp := 0
	for _, c := range p.src[start:p.pos] {
		exp = exp*10 + int(c-'0')
	}
	return e.Pow(exp), nil
}

func (p *parser) parseUnary() (*Expr, error) {
	if p.peek() == '-' {
		p.pos++
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return e.Neg(), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Expr, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		e, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("symbol: missing closing parenthesis at offset %d", p.pos)
		}
		p.pos++
		return e, nil
	case unicode.IsDigit(rune(c)):
		return p.parseNumber()
	case unicode.IsLetter(rune(c)) || c == '_':
		return p.parseIdent()
	case c == 0:
		return nil, fmt.Errorf("symbol: unexpected end of expression %q", p.src)
	default:
		return nil, fmt.Errorf("symbol: unexpected %q at offset %d", c, p.pos)
	}
}

func (p *parser) parseNumber() (*Expr, error) {
	start := p.pos
	sawDot := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			if sawDot {
				break
			}
			sawDot = true
			p.pos++
			continue
		}
		if !unicode.IsDigit(rune(c)) {
			break
		}
		p.pos++
	}
	lit := p.src[start:p.pos]
	r, ok := new(big.Rat).SetString(lit)
	if !ok {
		return nil, fmt.Errorf("symbol: invalid numeric literal %q", lit)
	}
	return Rat(r), nil
}

func (p *parser) parseIdent() (*Expr, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		p.pos++
	}
	name := p.src[start:p.pos]
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("symbol: empty identifier at offset %d", start)
	}
	return Var(name), nil
}
