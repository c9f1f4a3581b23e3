package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/appkins-org/go-uefi-bootorder/internal/backup"
	"github.com/appkins-org/go-uefi-bootorder/internal/config"
	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
	"github.com/appkins-org/go-uefi-bootorder/internal/reorder"
)

var version = "1.0.0"

func main() {
	os.Exit(run())
}

// run maps the outcome to the process exit code: 0 on success, 1 for any
// recognized operational failure, 2 for anything unanticipated.
func run() int {
	err := newRootCommand().Execute()
	if err == nil {
		return 0
	}
	if efibootmgr.IsOp(err) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "unexpected error: %+v\n", err)
	return 2
}

func newRootCommand() *cobra.Command {
	var (
		opts    reorder.Options
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "bootorder",
		Short: "Promote a UEFI boot entry and restore the previous order on exit",
		Long: `bootorder reads the current UEFI boot order via efibootmgr, writes a
plain-text backup, moves the selected entry to the front of the order, and
restores the previous order before exiting, whether the run ends normally,
with an error, or through a termination signal.

The target entry is selected either by description (--name, case-insensitive
substring unless --exact) or directly by its four-hex-digit id (--id).`,
		Example: `  # Promote by description substring, wait for Enter, then restore
  sudo bootorder --name ubuntu

  # Exact description, custom backup location, no interactive wait
  sudo bootorder --name "Windows Boot Manager" --exact --backup /root/bootorder.bak --no-prompt

  # Promote by id, restore from the backup file instead of memory
  sudo bootorder --id 0003 --restore-from-backup`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if verbose {
				cfg.LogLevel = "debug"
				cfg.Log = config.Logger(cfg.LogLevel)
			}
			if opts.BackupPath == "" {
				opts.BackupPath = cfg.BackupPath
			}

			tool := &efibootmgr.ExecRunner{
				Command: cfg.Command,
				Timeout: cfg.Timeout,
				Log:     cfg.Log,
			}
			store := backup.NewStore(afero.NewOsFs(), cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
			defer stop()

			return reorder.New(opts, tool, store, cfg.Log).Execute(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.TargetName, "name", "", "target entry by description (case-insensitive substring)")
	flags.StringVar(&opts.TargetID, "id", "", "target entry by id (four hex digits, e.g. 0003)")
	flags.BoolVar(&opts.Exact, "exact", false, "require a full description match instead of a substring")
	flags.StringVar(&opts.BackupPath, "backup", "", "backup file path (default "+backup.DefaultPath+")")
	flags.BoolVar(&opts.RestoreFromBackup, "restore-from-backup", false, "restore the order recorded in the backup file instead of the in-memory snapshot")
	flags.BoolVar(&opts.NoPrompt, "no-prompt", false, "do not wait for Enter before restoring")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.MarkFlagsMutuallyExclusive("name", "id")
	cmd.MarkFlagsOneRequired("name", "id")

	return cmd
}
