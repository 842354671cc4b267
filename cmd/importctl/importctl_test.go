package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestImportCmd_RejectsBadArguments(t *testing.T) {
	err := run("import", "parents", "roster.xlsx")
	require.ErrorContains(t, err, "unknown roster kind")

	err = run("import", "students", "roster.xlsx", "--on-duplicate", "middle")
	require.ErrorContains(t, err, "invalid --on-duplicate")

	err = run("import", "students")
	require.Error(t, err)

	err = run("import", "teachers", "/nonexistent/roster.csv")
	require.ErrorContains(t, err, "failed to read")
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["import"])
	require.True(t, names["resync"])
	require.True(t, names["migrate"])
}
