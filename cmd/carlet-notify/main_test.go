package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"worker", "sweep", "inject-report", "resolve-report", "seed-user", "migrate"}, names)
}

func TestInjectReportCmd_Flags(t *testing.T) {
	cmd := injectReportCmd()
	for _, flag := range []string{"reporter-id", "lat", "lng", "license-plate", "message", "photo-url", "anonymous"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
	assert.Equal(t, "test-user", cmd.Flags().Lookup("reporter-id").DefValue)
}

func TestSeedUserCmd_RequiresPairedCoordinates(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"seed-user", "--id", "u1", "--lat", "1.5"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--lat and --lng must be given together")
}

func TestResolveReportCmd_RequiresID(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"resolve-report"})

	assert.Error(t, root.Execute())
}

func TestIgnoreClosed(t *testing.T) {
	assert.NoError(t, ignoreClosed(http.ErrServerClosed))
	assert.NoError(t, ignoreClosed(fmt.Errorf("serve: %w", http.ErrServerClosed)))
	assert.NoError(t, ignoreClosed(nil))
	assert.Error(t, ignoreClosed(errors.New("listen tcp :9091: bind: address already in use")))
}

func TestMigrateCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range migrateCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down"}, names)
}

func TestMigrateDownCmd_RequiresConfirmation(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"migrate", "down"})

	err := root.Execute()

	assert.ErrorIs(t, err, errDropNotConfirmed)
}
