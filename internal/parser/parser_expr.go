package parser

import (
	"strconv"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/lexer"
)

// parseExpr parses a process expression by recursive descent through the
// fixed precedence ladder: choice -> parallel -> hide -> prefix -> atom
// (loosest to tightest), one dedicated parse function per level.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseChoice()
}

func (p *Parser) parseChoice() ast.Expr {
	left := p.parseParallel()
	for p.curIs(lexer.BOX) || p.curIs(lexer.INTCHOICE) {
		kind := ast.External
		if p.curIs(lexer.INTCHOICE) {
			kind = ast.Internal
		}
		start := left.SpanOf().Start
		p.next()
		right := p.parseParallel()
		left = ast.ChoiceExpr{Kind: kind, Left: left, Right: right, Span: ast.Span{Start: start, End: right.SpanOf().End}}
	}
	return left
}

func (p *Parser) parseParallel() ast.Expr {
	left := p.parseHide()
	for p.curIs(lexer.INTERLEAVE) || p.curIs(lexer.SYNCOPEN) {
		start := left.SpanOf().Start
		if p.curIs(lexer.INTERLEAVE) {
			p.next()
			right := p.parseHide()
			left = ast.ParallelExpr{Kind: ast.Interleaving, Left: left, Right: right, Span: ast.Span{Start: start, End: right.SpanOf().End}}
			continue
		}
		p.next() // consume "[|{|"
		sync := p.parseChannelSet()
		if !p.expect(lexer.SYNCCLOSE) {
			return left
		}
		right := p.parseHide()
		left = ast.ParallelExpr{Kind: ast.Interface, Left: left, Right: right, Sync: sync, Span: ast.Span{Start: start, End: right.SpanOf().End}}
	}
	return left
}

func (p *Parser) parseHide() ast.Expr {
	left := p.parsePrefix()
	for p.curIs(lexer.BACKSLASH) {
		start := left.SpanOf().Start
		p.next()
		if !p.expect(lexer.SETOPEN) {
			return left
		}
		hide := p.parseChannelSet()
		end := p.pos()
		if !p.expect(lexer.SETCLOSE) {
			return left
		}
		left = ast.HideExpr{Inner: left, Hide: hide, Span: ast.Span{Start: start, End: end}}
	}
	return left
}

// parseChannelSet parses a comma-separated list of channel names appearing
// inside `{| ... |}`.
func (p *Parser) parseChannelSet() []string {
	var names []string
	if p.curIs(lexer.SETCLOSE) {
		return names
	}
	for {
		if !p.curIs(lexer.IDENT) {
			p.errorf(errors.PAR001, p.spanHere(), "expected channel name in set, found %s %q", p.curToken.Type, p.curToken.Literal)
			return names
		}
		names = append(names, p.curToken.Literal)
		p.next()
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	return names
}

// parsePrefix parses `event -> expr`, right-associative, falling through to
// an atom when no "->" follows.
func (p *Parser) parsePrefix() ast.Expr {
	atomStart := p.pos()
	// An event prefix is only possible when the current token is an
	// identifier (channel name) immediately followed by '->', '.', '!', or
	// '?'. Otherwise this is a bare atom (STOP, Ref, or parenthesized expr).
	if p.curIs(lexer.IDENT) && (p.peekIs(lexer.ARROW) || p.peekIs(lexer.DOT) || p.peekIs(lexer.BANG) || p.peekIs(lexer.QMARK)) {
		event := p.parseEvent()
		if !p.expect(lexer.ARROW) {
			return ast.PrefixExpr{Event: event, Next: ast.StopExpr{Span: p.spanHere()}, Span: p.spanFrom(atomStart)}
		}
		next := p.parsePrefix() // right-associative
		return ast.PrefixExpr{Event: event, Next: next, Span: ast.Span{Start: atomStart, End: next.SpanOf().End}}
	}
	return p.parseAtom()
}

// parseEvent parses `channel`, `channel.v`, `channel!seg`, or `channel?seg`.
func (p *Parser) parseEvent() ast.Event {
	start := p.pos()
	channel := p.curToken.Literal
	p.next()

	if !p.curIs(lexer.DOT) && !p.curIs(lexer.BANG) && !p.curIs(lexer.QMARK) {
		return ast.Event{Channel: channel, Span: p.spanFrom(start)}
	}

	var kind ast.EventSegmentKind
	switch p.curToken.Type {
	case lexer.DOT:
		kind = ast.SegDot
	case lexer.BANG:
		kind = ast.SegOut
	case lexer.QMARK:
		kind = ast.SegIn
	}
	segStart := p.pos()
	p.next()

	seg := ast.EventSegment{Kind: kind}
	if p.curIs(lexer.INT) {
		v, _ := strconv.Atoi(p.curToken.Literal)
		seg.IsLit = true
		seg.Lit = v
		p.next()
	} else if p.curIs(lexer.IDENT) {
		seg.Name = p.curToken.Literal
		p.next()
	} else {
		p.errorf(errors.PAR001, p.spanHere(), "expected value or binding name after event segment")
	}
	seg.Span = p.spanFrom(segStart)

	return ast.Event{Channel: channel, Segment: &seg, Span: p.spanFrom(start)}
}

func (p *Parser) parseAtom() ast.Expr {
	start := p.pos()
	switch p.curToken.Type {
	case lexer.STOP:
		p.next()
		return ast.StopExpr{Span: p.spanFrom(start)}
	case lexer.IDENT:
		name := p.curToken.Literal
		p.next()
		return ast.RefExpr{Name: name, Span: p.spanFrom(start)}
	case lexer.LPAREN:
		p.next()
		inner := p.parseExpr()
		if !p.expect(lexer.RPAREN) {
			return inner
		}
		return inner
	default:
		p.errorf(errors.PAR001, p.spanHere(), "expected STOP, process reference, or '(', found %s %q", p.curToken.Type, p.curToken.Literal)
		tok := p.curToken
		p.next()
		return ast.StopExpr{Span: ast.Span{Start: start, End: ast.Pos{File: tok.File, Line: tok.Line, Column: tok.Column}}}
	}
}
