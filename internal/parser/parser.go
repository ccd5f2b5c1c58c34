// Package parser turns a token stream into the surface ast.File via a
// hand-written recursive-descent parser, then typechecks it into an
// ir.Module.
package parser

import (
	"fmt"

	"github.com/cspx/cspx/internal/ast"
	"github.com/cspx/cspx/internal/errors"
	"github.com/cspx/cspx/internal/lexer"
)

// Parser holds the lexer and current/peek token, plus accumulated parse
// errors (parsing continues past a recoverable error to surface more than
// one diagnostic per run).
type Parser struct {
	l    *lexer.Lexer
	file string

	curToken  lexer.Token
	peekToken lexer.Token

	errs []*errors.Report
}

// New constructs a Parser over l.
func New(l *lexer.Lexer, filename string) *Parser {
	p := &Parser{l: l, file: filename}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) pos() ast.Pos {
	return ast.Pos{File: p.file, Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) spanHere() ast.Span {
	pos := p.pos()
	return ast.Span{Start: pos, End: pos}
}

func (p *Parser) spanFrom(start ast.Pos) ast.Span {
	// End points at the token just consumed (peek hasn't been advanced past
	// it), approximated by the current token's start — good enough for
	// pointing a reader at the right line.
	return ast.Span{Start: start, End: p.pos()}
}

func (p *Parser) errorf(code string, span ast.Span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errs = append(p.errs, errors.New(errors.InvalidInput, code, "parser", msg, &span))
}

// expect consumes curToken if it matches t, else records a parse error and
// does not advance.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf(errors.PAR001, p.spanHere(), "expected %s, found %s %q", t, p.curToken.Type, p.curToken.Literal)
	return false
}

// skipNewlines consumes zero or more NEWLINE tokens (blank lines between
// declarations).
func (p *Parser) skipNewlines() {
	for p.curIs(lexer.NEWLINE) {
		p.next()
	}
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []*errors.Report { return p.errs }

// ParseFile parses a complete source file into a surface ast.File.
func ParseFile(source []byte, filename string) (*ast.File, []*errors.Report) {
	normalized := lexer.Normalize(source)
	l := lexer.New(string(normalized), filename)
	p := New(l, filename)
	file := p.parseFile()
	return file, p.errs
}

func (p *Parser) parseFile() *ast.File {
	file := &ast.File{Path: p.file}
	p.skipNewlines()

	for !p.curIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.CHANNEL:
			if decl, ok := p.parseChannelDecl(); ok {
				file.Channels = append(file.Channels, decl)
			}
		case lexer.DATATYPE:
			file.Datatypes = append(file.Datatypes, p.parseDatatypeDecl())
		case lexer.ASSERT:
			if a, ok := p.parseAssertion(); ok {
				file.Assertions = append(file.Assertions, a)
			}
		case lexer.IDENT:
			if p.peekIs(lexer.EQ) {
				if decl, ok := p.parseProcessDecl(); ok {
					file.Decls = append(file.Decls, decl)
				}
			} else {
				start := p.pos()
				expr := p.parseExpr()
				file.Orphans = append(file.Orphans, expr)
				p.expectStatementEnd(start)
			}
		default:
			start := p.pos()
			expr := p.parseExpr()
			file.Orphans = append(file.Orphans, expr)
			p.expectStatementEnd(start)
		}
		p.skipNewlines()
	}

	if len(file.Orphans) > 1 {
		p.errorf(errors.PAR006, file.Orphans[1].SpanOf(), "multiple top-level orphan expressions are not permitted")
	}

	return file
}

func (p *Parser) expectStatementEnd(start ast.Pos) {
	if p.curIs(lexer.NEWLINE) || p.curIs(lexer.EOF) {
		return
	}
	p.errorf(errors.PAR001, p.spanFrom(start), "unexpected token %s %q after expression", p.curToken.Type, p.curToken.Literal)
}
