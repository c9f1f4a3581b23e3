package backup

import (
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
)

var (
	testOrder   = efibootmgr.Order{"0003", "0001", "0002"}
	testEntries = map[efibootmgr.EntryID]string{
		"0001": "Windows Boot Manager",
		"0002": "Ubuntu",
		"0003": "Debian GNU/Linux",
	}
)

func newTestStore() (*Store, afero.Fs) {
	fsys := afero.NewMemMapFs()
	return NewStore(fsys, logr.Discard()), fsys
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, _ := newTestStore()
	path := "/var/backups/bootorder.txt"

	require.NoError(t, store.Write(path, testOrder, testEntries))

	order, err := store.ReadOrder(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(testOrder, order))
}

func TestWriteRecordFormat(t *testing.T) {
	store, fsys := newTestStore()
	path := "/var/backups/bootorder.txt"

	require.NoError(t, store.Write(path, testOrder, testEntries))

	data, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "# Backup created: "))
	require.Equal(t, "BootOrder=0003,0001,0002", lines[1])
	// Entry lines are sorted by id for deterministic output.
	require.Equal(t, "BootEntry 0001=Windows Boot Manager", lines[2])
	require.Equal(t, "BootEntry 0002=Ubuntu", lines[3])
	require.Equal(t, "BootEntry 0003=Debian GNU/Linux", lines[4])
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	store, fsys := newTestStore()
	path := "/deeply/nested/dir/bootorder.txt"

	require.NoError(t, store.Write(path, testOrder, testEntries))

	exists, err := afero.Exists(fsys, path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestWriteFailureIsOperational(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), logr.Discard())
	err := store.Write("/var/backups/bootorder.txt", testOrder, testEntries)
	require.Error(t, err)
	require.True(t, efibootmgr.IsOp(err))
	require.Contains(t, err.Error(), "/var/backups/bootorder.txt")
}

func TestReadOrderMissingFile(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.ReadOrder("/nowhere/bootorder.txt")
	require.Error(t, err)
	require.True(t, efibootmgr.IsOp(err))
	require.Contains(t, err.Error(), "does not exist")
}

func TestReadOrderMissingOrderLine(t *testing.T) {
	store, fsys := newTestStore()
	path := "/var/backups/bootorder.txt"
	require.NoError(t, afero.WriteFile(fsys, path, []byte("# just a comment\n"), 0o600))

	_, err := store.ReadOrder(path)
	require.Error(t, err)
	require.True(t, efibootmgr.IsOp(err))
	require.Contains(t, err.Error(), "no BootOrder=")
}

func TestReadOrderMalformedToken(t *testing.T) {
	store, fsys := newTestStore()
	path := "/var/backups/bootorder.txt"
	require.NoError(t, afero.WriteFile(fsys, path, []byte("BootOrder=0001,nope\n"), 0o600))

	_, err := store.ReadOrder(path)
	require.Error(t, err)
	require.True(t, efibootmgr.IsOp(err))
}

func TestReadOrderNormalizesCase(t *testing.T) {
	store, fsys := newTestStore()
	path := "/var/backups/bootorder.txt"
	require.NoError(t, afero.WriteFile(fsys, path, []byte("# ts\nBootOrder=000A,0001\n"), 0o600))

	order, err := store.ReadOrder(path)
	require.NoError(t, err)
	require.Equal(t, efibootmgr.Order{"000a", "0001"}, order)
}

// Parsing firmware output, writing it as a backup, and reading the backup
// back must reproduce the same case-normalized order.
func TestParseWriteReadReproducesOrder(t *testing.T) {
	output := "BootOrder: 000B,0001,000a\nBoot0001* Ubuntu\nBoot000A* Debian\nBoot000B  Windows\n"

	order, err := efibootmgr.ParseOrder(output)
	require.NoError(t, err)
	entries, err := efibootmgr.ParseEntries(output)
	require.NoError(t, err)

	store, _ := newTestStore()
	path := "/var/backups/bootorder.txt"
	require.NoError(t, store.Write(path, order, entries))

	got, err := store.ReadOrder(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(order, got))
}
