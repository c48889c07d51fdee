package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/photoreport/internal/provider/mbox"
)

func newOutboxCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "outbox [mbox-file]",
		Short: "List the submissions stored by the mbox provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rt.cfg.Mbox.Path
			if len(args) == 1 {
				path = args[0]
			}

			deliveries, err := mbox.Read(path)
			if err != nil {
				return err
			}

			out := rt.opts.Out
			for i, d := range deliveries {
				names := make([]string, 0, len(d.Message.Attachments))
				for _, att := range d.Message.Attachments {
					names = append(names, att.Filename)
				}
				fmt.Fprintf(out, "%d. %s | %s | %s\n", i+1, d.To, d.Message.Subject, strings.Join(names, ", "))
			}
			fmt.Fprintf(out, "%d message(s) in %s\n", len(deliveries), path)
			return nil
		},
	}
}
