package lexer

import "testing"

func TestNextToken_Operators(t *testing.T) {
	input := `channel a, b : {0..1}
P = a -> b -> STOP
Q = P [] P
R = P |~| P
S = P ||| P
T = P [|{|a|}|] P
U = P \ {|a|}
assert P :[deadlock free [F]]
assert P [T= Q
`
	l := New(input, "t.csp")

	want := []struct {
		typ     TokenType
		literal string
	}{
		{CHANNEL, "channel"}, {IDENT, "a"}, {COMMA, ","}, {IDENT, "b"}, {COLON, ":"},
		{LBRACE, "{"}, {INT, "0"}, {DOTDOT, ".."}, {INT, "1"}, {RBRACE, "}"}, {NEWLINE, "\n"},
		{IDENT, "P"}, {EQ, "="}, {IDENT, "a"}, {ARROW, "->"}, {IDENT, "b"}, {ARROW, "->"}, {STOP, "STOP"}, {NEWLINE, "\n"},
		{IDENT, "Q"}, {EQ, "="}, {IDENT, "P"}, {BOX, "[]"}, {IDENT, "P"}, {NEWLINE, "\n"},
		{IDENT, "R"}, {EQ, "="}, {IDENT, "P"}, {INTCHOICE, "|~|"}, {IDENT, "P"}, {NEWLINE, "\n"},
		{IDENT, "S"}, {EQ, "="}, {IDENT, "P"}, {INTERLEAVE, "|||"}, {IDENT, "P"}, {NEWLINE, "\n"},
		{IDENT, "T"}, {EQ, "="}, {IDENT, "P"}, {SYNCOPEN, "[|{|"}, {IDENT, "a"}, {SYNCCLOSE, "|}|]"}, {IDENT, "P"}, {NEWLINE, "\n"},
		{IDENT, "U"}, {EQ, "="}, {IDENT, "P"}, {BACKSLASH, `\`}, {SETOPEN, "{|"}, {IDENT, "a"}, {SETCLOSE, "|}"}, {NEWLINE, "\n"},
		{ASSERT, "assert"}, {IDENT, "P"}, {COLON, ":"}, {LBRACK, "["}, {IDENT, "deadlock"}, {IDENT, "free"}, {LBRACK, "["}, {IDENT, "F"}, {RBRACK, "]"}, {RBRACK, "]"}, {NEWLINE, "\n"},
		{ASSERT, "assert"}, {IDENT, "P"}, {TEQ, "[T="}, {IDENT, "Q"}, {NEWLINE, "\n"},
		{EOF, ""},
	}

	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Literal != w.literal {
			t.Fatalf("token %d: got {%s %q}, want {%s %q}", i, tok.Type, tok.Literal, w.typ, w.literal)
		}
	}
}

func TestNextToken_Comment(t *testing.T) {
	l := New("-- a comment\nSTOP", "t.csp")
	tok := l.NextToken()
	if tok.Type != NEWLINE {
		t.Fatalf("expected comment line to be skipped to NEWLINE, got %s", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != STOP {
		t.Fatalf("expected STOP after comment, got %s", tok.Type)
	}
}

func TestNextToken_Illegal(t *testing.T) {
	l := New("@", "t.csp")
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
}

func TestLookupIdent_Keywords(t *testing.T) {
	cases := map[string]TokenType{
		"STOP": STOP, "channel": CHANNEL, "assert": ASSERT, "datatype": DATATYPE,
		"Foo": IDENT, "a": IDENT,
	}
	for ident, want := range cases {
		if got := LookupIdent(ident); got != want {
			t.Errorf("LookupIdent(%q) = %s, want %s", ident, got, want)
		}
	}
}
