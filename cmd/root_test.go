//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"scrape", "batch", "extract", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "review-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	flag := rootCmd.PersistentFlags().Lookup("metrics-addr")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestScrapeCommand_Flags(t *testing.T) {
	for _, name := range []string{"company", "source", "start-date", "end-date", "output-dir", "format"} {
		assert.NotNil(t, scrapeCmd.Flags().Lookup(name), "scrape should have --%s", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	require.NotNil(t, batchCmd.Flags().Lookup("file"))
	flag := batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestExtractCommand_Flags(t *testing.T) {
	flag := extractCmd.Flags().Lookup("top")
	require.NotNil(t, flag)
	assert.Equal(t, "10", flag.DefValue)
	assert.NotNil(t, extractCmd.Flags().Lookup("url"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats", "check"} {
		assert.True(t, names[name], "expected runs subcommand %q", name)
	}
}

func TestStartMetrics_EmptyAddr(t *testing.T) {
	startMetrics(context.Background(), "")
	assert.NotNil(t, registry)
}
