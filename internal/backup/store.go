// Package backup persists boot-order snapshots as plain-text records and
// reads them back for restoration. Records are never deleted here.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
)

// DefaultPath is where a run persists its backup record unless told otherwise.
const DefaultPath = "/var/backups/bootorder.txt"

const orderKey = "BootOrder="

// Store reads and writes backup records on an afero filesystem. Production
// code hands it an OS filesystem; tests use a memory-backed one.
type Store struct {
	fs  afero.Fs
	log logr.Logger
}

func NewStore(fsys afero.Fs, log logr.Logger) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{fs: fsys, log: log}
}

// Write persists the order and entry descriptions to path, creating parent
// directories as needed. The record is a timestamp comment, a BootOrder=
// line, and one BootEntry line per entry sorted by id.
func (s *Store) Write(path string, order efibootmgr.Order, entries map[efibootmgr.EntryID]string) error {
	if err := s.writeRecord(path, order, entries); err != nil {
		return efibootmgr.Wrapf(err, "writing backup %s", path)
	}
	s.log.Info("backup written", "path", path, "order", order.String())
	return nil
}

func (s *Store) writeRecord(path string, order efibootmgr.Order, entries map[efibootmgr.EntryID]string) (err error) {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// An existing record may sit immutable-flagged on efivarfs-style setups;
	// lift the flag for the rewrite and re-arm it afterwards.
	guard, err := openSafeguard(s.fs, path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, guard.Close()) }()

	wasProtected, err := guard.disarm()
	if err != nil {
		return err
	}
	if wasProtected {
		defer func() { err = multierr.Append(err, guard.rearm()) }()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Backup created: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s%s\n", orderKey, order)
	ids := maps.Keys(entries)
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "BootEntry %s=%s\n", id.Upper(), entries[id])
	}

	return afero.WriteFile(s.fs, path, []byte(b.String()), 0o600)
}

// ReadOrder parses the boot order out of a previously written record: the
// first BootOrder= line, split on commas, every token shape-validated.
func (s *Store) ReadOrder(path string) (efibootmgr.Order, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, efibootmgr.Errorf("backup file %s does not exist", path)
		}
		return nil, efibootmgr.Wrapf(err, "reading backup %s", path)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, orderKey) {
			continue
		}
		value := strings.TrimPrefix(line, orderKey)
		tokens := strings.Split(value, ",")
		order := make(efibootmgr.Order, 0, len(tokens))
		for _, tok := range tokens {
			id, err := efibootmgr.ParseEntryID(tok)
			if err != nil {
				return nil, efibootmgr.Wrapf(err, "malformed boot order in backup %s", path)
			}
			order = append(order, id)
		}
		return order, nil
	}

	return nil, efibootmgr.Errorf("backup %s has no %s line", path, orderKey)
}
