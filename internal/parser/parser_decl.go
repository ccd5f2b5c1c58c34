package parser

import (
	"strconv"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/lexer"
)

// parseChannelDecl parses `channel a, b, c : {min..max}` or a bare
// `channel a, b` (Unit domain), or a named-type domain (recorded but
// unsupported).
func (p *Parser) parseChannelDecl() (ast.ChannelDecl, bool) {
	start := p.pos()
	p.next() // consume 'channel'

	var names []string
	for {
		if !p.curIs(lexer.IDENT) {
			p.errorf(errors.PAR003, p.spanHere(), "expected channel name, found %s %q", p.curToken.Type, p.curToken.Literal)
			return ast.ChannelDecl{}, false
		}
		names = append(names, p.curToken.Literal)
		p.next()
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}

	var domain ast.Domain
	if p.curIs(lexer.COLON) {
		p.next()
		d, ok := p.parseDomain()
		if !ok {
			return ast.ChannelDecl{}, false
		}
		domain = d
	}

	return ast.ChannelDecl{Names: names, Domain: domain, Span: p.spanFrom(start)}, true
}

// parseDomain parses `{min..max}` or a bare identifier (named type).
func (p *Parser) parseDomain() (ast.Domain, bool) {
	if p.curIs(lexer.IDENT) {
		name := p.curToken.Literal
		span := p.spanHere()
		p.next()
		msg := "named-type channel domain " + strconv.Quote(name) + " is not supported"
		p.errs = append(p.errs, errors.New(errors.UnsupportedSyntax, errors.PAR008, "parser", msg, &span))
		return ast.NamedDomain{Name: name}, true
	}

	if !p.curIs(lexer.LBRACE) {
		p.errorf(errors.PAR003, p.spanHere(), "expected channel domain, found %s %q", p.curToken.Type, p.curToken.Literal)
		return nil, false
	}
	p.next() // consume '{'
	if !p.curIs(lexer.INT) {
		p.errorf(errors.PAR003, p.spanHere(), "expected integer in domain range")
		return nil, false
	}
	min, _ := strconv.Atoi(p.curToken.Literal)
	p.next()
	if !p.expect(lexer.DOTDOT) {
		return nil, false
	}
	if !p.curIs(lexer.INT) {
		p.errorf(errors.PAR003, p.spanHere(), "expected integer in domain range")
		return nil, false
	}
	max, _ := strconv.Atoi(p.curToken.Literal)
	p.next()
	if !p.expect(lexer.RBRACE) {
		return nil, false
	}
	return ast.IntRangeDomain{Min: min, Max: max}, true
}

func (p *Parser) parseDatatypeDecl() ast.DatatypeDecl {
	start := p.pos()
	span := p.spanFrom(start)
	p.errs = append(p.errs, errors.New(errors.UnsupportedSyntax, errors.PAR007, "parser", "datatype declarations are not supported", &span))
	for !p.curIs(lexer.NEWLINE) && !p.curIs(lexer.EOF) {
		p.next()
	}
	return ast.DatatypeDecl{Span: p.spanFrom(start)}
}

// parseProcessDecl parses `Name = expr`.
func (p *Parser) parseProcessDecl() (ast.ProcessDecl, bool) {
	start := p.pos()
	name := p.curToken.Literal
	p.next() // consume name
	if !p.expect(lexer.EQ) {
		return ast.ProcessDecl{}, false
	}
	body := p.parseExpr()
	decl := ast.ProcessDecl{Name: name, Body: body, Span: p.spanFrom(start)}
	p.expectStatementEnd(start)
	return decl, true
}

// parseAssertion parses either a property assertion
// `assert Name :[kind [model]]` or a refinement assertion
// `assert SpecName [op= ImplName`.
func (p *Parser) parseAssertion() (ast.Assertion, bool) {
	start := p.pos()
	p.next() // consume 'assert'

	if !p.curIs(lexer.IDENT) {
		p.errorf(errors.PAR005, p.spanHere(), "expected process name after assert")
		return nil, false
	}
	lhs := p.curToken.Literal
	p.next()

	switch p.curToken.Type {
	case lexer.TEQ, lexer.FEQ, lexer.FDEQ:
		op := p.curToken.Type
		p.next()
		if !p.curIs(lexer.IDENT) {
			p.errorf(errors.PAR005, p.spanHere(), "expected implementation process name")
			return nil, false
		}
		impl := p.curToken.Literal
		p.next()
		model := ast.ModelT
		switch op {
		case lexer.FEQ:
			model = ast.ModelF
		case lexer.FDEQ:
			model = ast.ModelFD
		}
		a := ast.RefinementAssertion{Spec: lhs, Op: model, Impl: impl, Span: p.spanFrom(start)}
		p.expectStatementEnd(start)
		return a, true
	case lexer.COLON:
		p.next()
		if !p.expect(lexer.LBRACK) {
			return nil, false
		}
		kind, ok := p.parsePropertyKind()
		if !ok {
			return nil, false
		}
		model := ast.ModelF
		if p.curIs(lexer.LBRACK) {
			p.next()
			if !p.curIs(lexer.IDENT) {
				p.errorf(errors.PAR005, p.spanHere(), "expected model name")
				return nil, false
			}
			switch p.curToken.Literal {
			case "T":
				model = ast.ModelT
			case "F":
				model = ast.ModelF
			case "FD":
				model = ast.ModelFD
			default:
				p.errorf(errors.PAR005, p.spanHere(), "unknown model %q", p.curToken.Literal)
				return nil, false
			}
			p.next()
			if !p.expect(lexer.RBRACK) {
				return nil, false
			}
		}
		if !p.expect(lexer.RBRACK) {
			return nil, false
		}
		a := ast.PropertyAssertion{Target: lhs, Kind: kind, Model: model, Span: p.spanFrom(start)}
		p.expectStatementEnd(start)
		return a, true
	default:
		p.errorf(errors.PAR005, p.spanHere(), "expected refinement operator or ':' after assertion target")
		return nil, false
	}
}

func (p *Parser) parsePropertyKind() (ast.PropertyKind, bool) {
	if !p.curIs(lexer.IDENT) {
		p.errorf(errors.PAR005, p.spanHere(), "expected property kind")
		return 0, false
	}
	first := p.curToken.Literal
	switch first {
	case "deterministic":
		p.next()
		return ast.Deterministic, true
	case "deadlock":
		p.next()
		if !p.curIs(lexer.IDENT) || p.curToken.Literal != "free" {
			p.errorf(errors.PAR005, p.spanHere(), "expected 'free' after 'deadlock'")
			return 0, false
		}
		p.next()
		return ast.DeadlockFree, true
	case "divergence":
		p.next()
		if !p.curIs(lexer.IDENT) || p.curToken.Literal != "free" {
			p.errorf(errors.PAR005, p.spanHere(), "expected 'free' after 'divergence'")
			return 0, false
		}
		p.next()
		return ast.DivergenceFree, true
	default:
		p.errorf(errors.PAR005, p.spanHere(), "unknown property kind %q", first)
		return 0, false
	}
}
