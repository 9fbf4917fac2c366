package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/prompttrace/internal/cli"
)

func TestRunHelpExitsCleanly(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"-h"})
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"--no-such-flag"})
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}

func TestRunRejectsInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, []string{"--log-level", "loud"})
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
}
