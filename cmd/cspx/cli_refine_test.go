package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cspx/cspx/internal/ast"
)

func TestParseModel(t *testing.T) {
	cases := []struct {
		text  string
		model ast.Model
		ok    bool
	}{
		{"T", ast.ModelT, true},
		{"F", ast.ModelF, true},
		{"FD", ast.ModelFD, true},
		{"fd", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		model, ok := parseModel(c.text)
		assert.Equal(t, c.ok, ok, "text %q", c.text)
		if c.ok {
			assert.Equal(t, c.model, model, "text %q", c.text)
		}
	}
}

func TestFailureClass(t *testing.T) {
	assert.Equal(t, "trace_mismatch", failureClass([]string{"other", "trace_mismatch"}))
	assert.Equal(t, "", failureClass([]string{"fd_closure_cache_hits:3"}))
}
