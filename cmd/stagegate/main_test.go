package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "sweep")
	assert.Contains(t, names, "serve")
}

func TestRunCommandRejectsBadCardID(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"run", "not-a-number"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card id")
}

func TestProcessFailureErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := &ProcessFailureError{Message: "2 of 5 cards failed processing"}
	wrapped := fmt.Errorf("sweep: %w", inner)

	var target *ProcessFailureError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, inner.Message, target.Error())
}
