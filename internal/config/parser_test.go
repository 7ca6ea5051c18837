package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, _, err := Parse("foo:\n  bar: 1\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "foo")
}

func TestParseLineNumberOnError(t *testing.T) {
	_, _, err := Parse("socket: /tmp/a\n\nhttp:\n  port: eighty\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 4")
}

func TestParseRejectsMultipleDocuments(t *testing.T) {
	_, _, err := Parse("socket: /tmp/a\n---\nsocket: /tmp/b\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "single YAML document")
}

func TestParseRelativeSocketWarns(t *testing.T) {
	cfg, warnings, err := Parse("socket: run/pose.sock\n", Default())
	require.NoError(t, err)
	require.Equal(t, "run/pose.sock", cfg.Socket)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "relative")
}
