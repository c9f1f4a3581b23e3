// Package reorder sequences one boot-order promotion run: read the current
// firmware state, back it up, move the selected entry to the front, wait,
// and restore the prior order on every exit path.
package reorder

import (
	"time"

	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
)

// Options is the per-run selection: which entry to promote, where the backup
// lives, and how the run pauses and restores.
type Options struct {
	// TargetID and TargetName are mutually exclusive; exactly one is set.
	TargetID   string
	TargetName string
	Exact      bool

	BackupPath string

	// RestoreFromBackup restores the order recorded in the backup file
	// instead of the in-memory snapshot.
	RestoreFromBackup bool

	// NoPrompt skips the interactive wait between apply and restore.
	NoPrompt bool
}

// Snapshot is the original firmware state captured once per run, immutable
// afterwards.
type Snapshot struct {
	efibootmgr.State
	TakenAt time.Time
}

// Promote returns order with target moved to the front. The relative order
// of all other entries is preserved.
func Promote(order efibootmgr.Order, target efibootmgr.EntryID) efibootmgr.Order {
	next := make(efibootmgr.Order, 0, len(order)+1)
	next = append(next, target)
	for _, id := range order {
		if id != target {
			next = append(next, id)
		}
	}
	return next
}
