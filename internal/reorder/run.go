package reorder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/term"

	"github.com/appkins-org/go-uefi-bootorder/internal/backup"
	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
)

const efiFirmwareDir = "/sys/firmware/efi"

// A Run owns one promotion attempt and its restore guarantee. It assumes
// exclusive access to the firmware boot variables for its lifetime; there is
// no locking against concurrent external mutation.
type Run struct {
	opts  Options
	tool  efibootmgr.Runner
	store *backup.Store
	log   logr.Logger

	// Test seams, defaulted by New.
	euid   func() int
	efiDir string
	stdin  io.Reader
	isTTY  func() bool
}

func New(opts Options, tool efibootmgr.Runner, store *backup.Store, log logr.Logger) *Run {
	return &Run{
		opts:   opts,
		tool:   tool,
		store:  store,
		log:    log,
		euid:   os.Geteuid,
		efiDir: efiFirmwareDir,
		stdin:  os.Stdin,
		isTTY:  func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Execute drives the state machine: Preflight, Read, Backup, Resolve, Apply,
// Pause, and the unconditional Restore. A preflight failure aborts before
// anything is captured; from the read onwards every exit path, including a
// cancelled signal context, releases the restore guard.
func (r *Run) Execute(ctx context.Context) error {
	if err := r.preflight(); err != nil {
		return err
	}

	guard := &restoreGuard{run: r}
	defer guard.release()

	state, err := efibootmgr.CurrentState(ctx, r.tool)
	if err != nil {
		return err
	}
	guard.snap = &Snapshot{State: state, TakenAt: time.Now()}
	r.log.Info("current boot order", "order", state.Order.String(), "entries", len(state.Entries))

	if err := r.store.Write(r.opts.BackupPath, state.Order, state.Entries); err != nil {
		return err
	}

	target, err := r.resolveTarget(state.Entries)
	if err != nil {
		return err
	}

	next := Promote(state.Order, target)
	r.log.Info("setting boot order", "order", next.String(), "target", target.Upper())
	if err := efibootmgr.SetOrder(ctx, r.tool, next); err != nil {
		return err
	}

	r.pause(ctx)
	return nil
}

// preflight refuses to touch the firmware without root, an EFI-booted
// system, and a reachable boot manager binary.
func (r *Run) preflight() error {
	if r.euid() != 0 {
		return efibootmgr.Errorf("must run as root to modify firmware boot variables")
	}
	if _, err := os.Stat(r.efiDir); err != nil {
		return efibootmgr.Errorf("%s not present, system does not appear to boot via UEFI", r.efiDir)
	}
	if checker, ok := r.tool.(interface{ CheckAvailable() error }); ok {
		return checker.CheckAvailable()
	}
	return nil
}

func (r *Run) resolveTarget(entries map[efibootmgr.EntryID]string) (efibootmgr.EntryID, error) {
	if r.opts.TargetID != "" {
		id, err := efibootmgr.SelectByID(entries, r.opts.TargetID)
		if err != nil {
			return "", err
		}
		r.log.Info("target selected by id", "id", id.Upper(), "description", entries[id])
		return id, nil
	}
	id, err := efibootmgr.SelectByName(entries, r.opts.TargetName, r.opts.Exact)
	if err != nil {
		return "", err
	}
	r.log.Info("target selected by name", "id", id.Upper(), "description", entries[id])
	return id, nil
}

// pause blocks until Enter is pressed or the signal context is cancelled.
// There is no timeout. Non-interactive runs and non-terminal stdin skip the
// wait entirely.
func (r *Run) pause(ctx context.Context) {
	if r.opts.NoPrompt {
		return
	}
	if !r.isTTY() {
		r.log.Info("stdin is not a terminal, restoring immediately")
		return
	}

	fmt.Println("Press Enter to restore the previous boot order...")

	pressed := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(r.stdin).ReadString('\n')
		close(pressed)
	}()

	select {
	case <-pressed:
	case <-ctx.Done():
		r.log.Info("interrupted, restoring boot order")
	}
}

// restoreGuard carries the optional snapshot into the guaranteed-restore
// step. snap stays nil when the run failed before the read completed.
type restoreGuard struct {
	run  *Run
	snap *Snapshot
}

// release reinstates the prior boot order. It runs on every exit path after
// the guard is installed, reports its own failures, and never re-raises:
// restoration is a best-effort last action and must not mask or change the
// outcome the primary flow already determined.
func (g *restoreGuard) release() {
	r := g.run

	// The signal context may already be cancelled; restoration gets a
	// fresh one so the final firmware write can still go through.
	ctx := context.Background()

	switch {
	case r.opts.RestoreFromBackup:
		if err := r.restoreFromBackup(ctx); err != nil {
			r.log.Error(err, "restore from backup failed", "path", r.opts.BackupPath)
			return
		}
		r.log.Info("boot order restored from backup", "path", r.opts.BackupPath)
	case g.snap == nil:
		r.log.Info("warning: original state unknown, no restoration possible")
	default:
		if err := efibootmgr.SetOrder(ctx, r.tool, g.snap.Order); err != nil {
			r.log.Error(err, "restoring original boot order failed", "order", g.snap.Order.String())
			return
		}
		r.log.Info("original boot order restored", "order", g.snap.Order.String())
	}
}

// restoreFromBackup applies the order recorded in the backup file, after
// validating every recorded id against the current entries. Ids that have
// disappeared fail the restore before any order is applied.
func (r *Run) restoreFromBackup(ctx context.Context) error {
	order, err := r.store.ReadOrder(r.opts.BackupPath)
	if err != nil {
		return err
	}
	state, err := efibootmgr.CurrentState(ctx, r.tool)
	if err != nil {
		return err
	}
	if missing := order.MissingFrom(state.Entries); len(missing) > 0 {
		return efibootmgr.Errorf("backup references entries missing from firmware: %s", missing)
	}
	return efibootmgr.SetOrder(ctx, r.tool, order)
}
