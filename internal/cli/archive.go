package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineum/photoreport/internal/archive"
	"github.com/shineum/photoreport/internal/validate"
)

func newArchiveCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <root-dir>",
		Short: "Create today's archive folder with its Hilfe and Tagesbilder subfolders",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rt.opts.Out

			if res := validate.Archive(args); !res.Valid {
				fmt.Fprintln(out, res.Message)
				return ErrInvalidArguments
			}

			creator := archive.New(
				archive.WithClock(rt.opts.Now),
				archive.WithFolderNames(rt.cfg.Archive.HelpDir, rt.cfg.Archive.DailyDir),
			)
			paths, err := creator.Create(args[0])
			if errors.Is(err, archive.ErrExists) {
				fmt.Fprintf(out, "Could not create archive, as directory %s already exists!\n", paths.Root)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Directory %s containing subdirectories:\n%s\n%s\nwas successfully created.\n",
				paths.Root, paths.Help, paths.Daily)
			return nil
		},
	}
}
