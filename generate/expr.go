package generate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Expression evaluation errors.
var (
	// ErrUnknownName indicates an identifier not bound in the context.
	ErrUnknownName = errors.New("unknown name")
	// ErrInvalidExpression indicates a syntax or type error in a derived
	// expression.
	ErrInvalidExpression = errors.New("invalid expression")
)

// Eval evaluates a derived expression against env. The language is a small
// safe subset: int/float arithmetic (+ - * / %), comparisons, and/or/not,
// parentheses, string and boolean literals, named variable lookup, and a
// sum(list) helper. Nothing else is reachable; in particular there is no
// host access of any kind.
//
// Identifiers not present in env fail with [ErrUnknownName]. Division always
// yields a float; other arithmetic stays integral when both operands are.
func Eval(expression string, env map[string]any) (any, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}

	p := &exprParser{tokens: tokens}

	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if !p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, p.peek().text)
	}

	return node.eval(env)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var tokens []token

	i := 0

	for i < len(input) {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}

			tokens = append(tokens, token{kind: tokNumber, text: input[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(input) && isIdentPart(input[j]) {
				j++
			}

			tokens = append(tokens, token{kind: tokIdent, text: input[i:j]})
			i = j
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(input) && input[j] != c {
				j++
			}

			if j >= len(input) {
				return nil, fmt.Errorf("%w: unterminated string", ErrInvalidExpression)
			}

			tokens = append(tokens, token{kind: tokString, text: input[i+1 : j]})
			i = j + 1
		case strings.ContainsRune("+-*/%(),", rune(c)):
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokOp, text: input[i : i+2]})
				i += 2
			} else if c == '<' || c == '>' {
				tokens = append(tokens, token{kind: tokOp, text: string(c)})
				i++
			} else {
				return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, string(c))
			}
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, string(c))
		}
	}

	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

type exprNode interface {
	eval(env map[string]any) (any, error)
}

type exprParser struct {
	tokens []token
	pos    int
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *exprParser) peek() token {
	if p.atEnd() {
		return token{}
	}

	return p.tokens[p.pos]
}

func (p *exprParser) accept(kind tokenKind, text string) bool {
	if !p.atEnd() && p.tokens[p.pos].kind == kind && p.tokens[p.pos].text == text {
		p.pos++

		return true
	}

	return false
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.accept(tokIdent, "or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = &boolNode{op: "or", left: left, right: right}
	}

	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.accept(tokIdent, "and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = &boolNode{op: "and", left: left, right: right}
	}

	return left, nil
}

func (p *exprParser) parseNot() (exprNode, error) {
	if p.accept(tokIdent, "not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return &notNode{operand: operand}, nil
	}

	return p.parseComparison()
}

func (p *exprParser) parseComparison() (exprNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.accept(tokOp, op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}

			return &cmpNode{op: op, left: left, right: right}, nil
		}
	}

	return left, nil
}

func (p *exprParser) parseAdditive() (exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		var op string

		switch {
		case p.accept(tokOp, "+"):
			op = "+"
		case p.accept(tokOp, "-"):
			op = "-"
		default:
			return left, nil
		}

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = &arithNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseMultiplicative() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op string

		switch {
		case p.accept(tokOp, "*"):
			op = "*"
		case p.accept(tokOp, "/"):
			op = "/"
		case p.accept(tokOp, "%"):
			op = "%"
		default:
			return left, nil
		}

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &arithNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.accept(tokOp, "-") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &negNode{operand: operand}, nil
	}

	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrInvalidExpression)
	}

	tok := p.tokens[p.pos]

	switch tok.kind {
	case tokNumber:
		p.pos++

		if strings.Contains(tok.text, ".") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, tok.text)
			}

			return &literalNode{value: f}, nil
		}

		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, tok.text)
		}

		return &literalNode{value: n}, nil

	case tokString:
		p.pos++

		return &literalNode{value: tok.text}, nil

	case tokIdent:
		p.pos++

		switch tok.text {
		case "true", "True":
			return &literalNode{value: true}, nil
		case "false", "False":
			return &literalNode{value: false}, nil
		}

		if p.accept(tokOp, "(") {
			return p.parseCall(tok.text)
		}

		return &varNode{name: tok.text}, nil

	case tokOp:
		if tok.text == "(" {
			p.pos++

			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}

			if !p.accept(tokOp, ")") {
				return nil, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidExpression)
			}

			return inner, nil
		}
	}

	return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidExpression, tok.text)
}

func (p *exprParser) parseCall(name string) (exprNode, error) {
	var args []exprNode

	if !p.accept(tokOp, ")") {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}

			args = append(args, arg)

			if p.accept(tokOp, ",") {
				continue
			}

			if p.accept(tokOp, ")") {
				break
			}

			return nil, fmt.Errorf("%w: missing closing parenthesis in call to %q", ErrInvalidExpression, name)
		}
	}

	if name != "sum" {
		return nil, fmt.Errorf("%w: function %q", ErrUnknownName, name)
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("%w: sum takes one argument", ErrInvalidExpression)
	}

	return &sumNode{arg: args[0]}, nil
}

type literalNode struct{ value any }

func (n *literalNode) eval(map[string]any) (any, error) { return n.value, nil }

type varNode struct{ name string }

func (n *varNode) eval(env map[string]any) (any, error) {
	v, ok := env[n.name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, n.name)
	}

	return v, nil
}

type negNode struct{ operand exprNode }

func (n *negNode) eval(env map[string]any) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}

	if i, ok := toInt(v); ok {
		if _, isFloat := v.(float64); !isFloat {
			return -i, nil
		}
	}

	if f, ok := toFloat(v); ok {
		return -f, nil
	}

	return nil, fmt.Errorf("%w: cannot negate %T", ErrInvalidExpression, v)
}

type notNode struct{ operand exprNode }

func (n *notNode) eval(env map[string]any) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}

	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: not requires a boolean, got %T", ErrInvalidExpression, v)
	}

	return !b, nil
}

type boolNode struct {
	op          string
	left, right exprNode
}

func (n *boolNode) eval(env map[string]any) (any, error) {
	lv, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}

	lb, ok := lv.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires booleans, got %T", ErrInvalidExpression, n.op, lv)
	}

	// Short-circuit like the usual boolean operators.
	if n.op == "and" && !lb {
		return false, nil
	}

	if n.op == "or" && lb {
		return true, nil
	}

	rv, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}

	rb, ok := rv.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires booleans, got %T", ErrInvalidExpression, n.op, rv)
	}

	return rb, nil
}

type cmpNode struct {
	op          string
	left, right exprNode
}

func (n *cmpNode) eval(env map[string]any) (any, error) {
	lv, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}

	rv, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return looseEqual(lv, rv), nil
	case "!=":
		return !looseEqual(lv, rv), nil
	}

	cmp, ordered := compareValues(lv, rv)
	if !ordered {
		return nil, fmt.Errorf("%w: cannot order %T and %T", ErrInvalidExpression, lv, rv)
	}

	switch n.op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}

	return nil, fmt.Errorf("%w: comparison %q", ErrInvalidExpression, n.op)
}

type arithNode struct {
	op          string
	left, right exprNode
}

func (n *arithNode) eval(env map[string]any) (any, error) {
	lv, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}

	rv, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}

	// String concatenation is the one non-numeric case.
	if n.op == "+" {
		ls, lok := lv.(string)

		rs, rok := rv.(string)
		if lok && rok {
			return ls + rs, nil
		}
	}

	return applyArith(n.op, lv, rv)
}

func applyArith(op string, lv, rv any) (any, error) {
	li, liok := toInt(lv)
	ri, riok := toInt(rv)

	_, lFloat := lv.(float64)
	_, rFloat := rv.(float64)

	integral := liok && riok && !lFloat && !rFloat

	if integral && op != "/" {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "%":
			if ri == 0 {
				return nil, fmt.Errorf("%w: modulo by zero", ErrInvalidExpression)
			}

			return li % ri, nil
		}
	}

	lf, lok := toFloat(lv)

	rf, rok := toFloat(rv)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s requires numbers, got %T and %T", ErrInvalidExpression, op, lv, rv)
	}

	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
		}

		return lf / rf, nil
	case "%":
		return nil, fmt.Errorf("%w: modulo requires integers", ErrInvalidExpression)
	}

	return nil, fmt.Errorf("%w: operator %q", ErrInvalidExpression, op)
}

type sumNode struct{ arg exprNode }

func (n *sumNode) eval(env map[string]any) (any, error) {
	v, err := n.arg.eval(env)
	if err != nil {
		return nil, err
	}

	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: sum requires a list, got %T", ErrInvalidExpression, v)
	}

	var (
		intTotal   int64
		floatTotal float64
		sawFloat   bool
	)

	for _, item := range list {
		if i, ok := toInt(item); ok {
			if _, isFloat := item.(float64); !isFloat {
				intTotal += i

				continue
			}
		}

		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("%w: sum over non-numeric %T", ErrInvalidExpression, item)
		}

		floatTotal += f
		sawFloat = true
	}

	if sawFloat {
		return floatTotal + float64(intTotal), nil
	}

	return intTotal, nil
}
