package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"analyze", "inspect", "fetch", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "equimap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"facilities", "districts", "scenario", "capacity", "radius", "name-attr", "pop-attr", "format", "output"} {
		flag := analyzeCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "analyze command should have --%s flag", name)
	}

	assert.Equal(t, "0", analyzeCmd.Flags().Lookup("capacity").DefValue)
	assert.Equal(t, "0", analyzeCmd.Flags().Lookup("radius").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, flag, "serve command should have --addr flag")
	assert.Equal(t, "", flag.DefValue)
}
