package masterlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_CollapsesPlanVariants(t *testing.T) {
	directory := map[string]string{
		"001": "Acme Flexi Cap Fund - Direct Plan - Growth Option",
		"002": "Acme Flexi Cap Fund - Regular Plan - Growth Option",
		"003": "Acme Flexi Cap Fund - Direct Plan - Monthly IDCW",
		"004": "Zenith Liquid Fund - Direct - Growth",
	}

	groups := Group(directory)
	require.Len(t, groups, 2)

	acme := groups["acme flexi cap fund"]
	require.Len(t, acme, 3)
	assert.Equal(t, []Entry{
		{Code: "001", Name: "Acme Flexi Cap Fund - Direct Plan - Growth Option"},
		{Code: "002", Name: "Acme Flexi Cap Fund - Regular Plan - Growth Option"},
		{Code: "003", Name: "Acme Flexi Cap Fund - Direct Plan - Monthly IDCW"},
	}, acme)

	require.Len(t, groups["zenith liquid fund"], 1)
}

func TestGroup_TokenOnlyNameFallsBackToRawName(t *testing.T) {
	directory := map[string]string{
		"005": "Direct Plan - Growth",
	}

	groups := Group(directory)
	require.Len(t, groups, 1)

	entries, ok := groups["direct plan - growth"]
	require.True(t, ok, "token-only names must keep their lowercased raw name as key")
	assert.Equal(t, "005", entries[0].Code)
}

func TestGroup_DeterministicUnderEntryOrder(t *testing.T) {
	directory := map[string]string{
		"910": "Acme Flexi Cap Fund - Regular Plan",
		"105": "Acme Flexi Cap Fund - Direct Plan",
		"507": "Acme Flexi Cap Fund - Direct Plan - IDCW",
	}

	first := Group(directory)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Group(directory))
	}

	entries := first["acme flexi cap fund"]
	require.Len(t, entries, 3)
	assert.Equal(t, "105", entries[0].Code)
	assert.Equal(t, "507", entries[1].Code)
	assert.Equal(t, "910", entries[2].Code)
}

func TestSortedKeys(t *testing.T) {
	groups := map[string][]Entry{
		"zenith": nil,
		"acme":   nil,
		"midway": nil,
	}
	assert.Equal(t, []string{"acme", "midway", "zenith"}, SortedKeys(groups))
}
