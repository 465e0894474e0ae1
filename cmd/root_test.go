package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "ingest", "crawl", "migrate", "claims"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lookbook-admin", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"job", "dataset", "source"} {
		flag := ingestCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "ingest should have --%s flag", flagName)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestClaimsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range claimsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["issue"])
	assert.True(t, names["check"])
}
