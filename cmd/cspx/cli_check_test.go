package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cspx/cspx/internal/ast"
)

func TestParseAssertText(t *testing.T) {
	cases := []struct {
		text string
		kind ast.PropertyKind
		ok   bool
	}{
		{"deadlock free", ast.DeadlockFree, true},
		{"divergence free", ast.DivergenceFree, true},
		{"deterministic", ast.Deterministic, true},
		{"not a real property", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		kind, ok := parseAssertText(c.text)
		assert.Equal(t, c.ok, ok, "text %q", c.text)
		if c.ok {
			assert.Equal(t, c.kind, kind, "text %q", c.text)
		}
	}
}

func TestCheckName(t *testing.T) {
	assert.Equal(t, "deadlock_free", checkName(ast.DeadlockFree))
	assert.Equal(t, "divergence_free", checkName(ast.DivergenceFree))
	assert.Equal(t, "deterministic", checkName(ast.Deterministic))
}
