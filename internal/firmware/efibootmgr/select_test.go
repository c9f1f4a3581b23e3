package efibootmgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testEntries = map[EntryID]string{
	"0001": "Windows Boot Manager",
	"0002": "Ubuntu",
	"0003": "Debian GNU/Linux",
}

func TestSelectByNameSubstring(t *testing.T) {
	id, err := SelectByName(testEntries, "ubuntu", false)
	require.NoError(t, err)
	require.Equal(t, EntryID("0002"), id)
}

func TestSelectByNameExact(t *testing.T) {
	id, err := SelectByName(testEntries, "windows boot manager", true)
	require.NoError(t, err)
	require.Equal(t, EntryID("0001"), id)

	// The substring is not a full match in exact mode.
	_, err = SelectByName(testEntries, "windows", true)
	require.Error(t, err)
	require.True(t, IsOp(err))
}

func TestSelectByNameNoMatch(t *testing.T) {
	_, err := SelectByName(testEntries, "boot", true)
	require.Error(t, err)
	require.True(t, IsOp(err))
	require.Contains(t, err.Error(), `"boot"`)
	require.Contains(t, err.Error(), "exact=true")
}

func TestSelectByNameAmbiguous(t *testing.T) {
	entries := map[EntryID]string{
		"0001": "Windows Boot Manager",
		"0002": "Ubuntu",
		"0003": "Fedora Boot Manager",
	}
	_, err := SelectByName(entries, "boot", false)
	require.Error(t, err)
	require.True(t, IsOp(err))
	// Every candidate is reported; ambiguity is never auto-resolved.
	require.Contains(t, err.Error(), "0001: Windows Boot Manager")
	require.Contains(t, err.Error(), "0003: Fedora Boot Manager")
	require.Contains(t, err.Error(), "--exact")
}

func TestSelectByID(t *testing.T) {
	id, err := SelectByID(testEntries, "0003")
	require.NoError(t, err)
	require.Equal(t, EntryID("0003"), id)
}

func TestSelectByIDNormalizesCase(t *testing.T) {
	entries := map[EntryID]string{"00aa": "Recovery"}
	id, err := SelectByID(entries, "00AA")
	require.NoError(t, err)
	require.Equal(t, EntryID("00aa"), id)
}

func TestSelectByIDInvalidShape(t *testing.T) {
	for _, raw := range []string{"", "1", "12345", "zzzz", "0x01"} {
		_, err := SelectByID(testEntries, raw)
		require.Error(t, err, "id %q", raw)
		require.True(t, IsOp(err))
	}
}

func TestSelectByIDUnknown(t *testing.T) {
	_, err := SelectByID(testEntries, "00ff")
	require.Error(t, err)
	require.True(t, IsOp(err))
	require.Contains(t, err.Error(), "00FF")
}
