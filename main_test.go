package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no port", args: nil},
		{name: "extra argument", args: []string{"8080", "extra"}},
		{name: "not a number", args: []string{"http"}},
		{name: "out of range", args: []string{"70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1, run(tt.args))
		})
	}
}

func TestRun_BadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	assert.Equal(t, 1, run([]string{"0"}))
}
