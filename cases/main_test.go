package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAccountID(t *testing.T) {
	id, err := resolveAccountID(nil, "001Vv00000FLAG01")
	require.NoError(t, err)
	assert.Equal(t, "001Vv00000FLAG01", id)

	id, err = resolveAccountID([]string{"https://acme.lightning.force.com/lightning/r/Account/001Vv00000ABCDEFGH/view"}, "001Vv00000FLAG01")
	require.NoError(t, err)
	assert.Equal(t, "001Vv00000ABCDEFGH", id)

	_, err = resolveAccountID([]string{"https://example.com/nothing"}, "")
	assert.Error(t, err)
}

func TestSortedKeys(t *testing.T) {
	keys := sortedKeys(map[string]int{"New": 2, "Closed": 5, "Escalated": 2})
	assert.Equal(t, []string{"Closed", "Escalated", "New"}, keys)
}

func TestNewRootCmd_RejectsOpenAndClosed(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--open-only", "--closed-only"})
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open-only")
}
