package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shineum/photoreport/internal/compose"
	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/mailer"
	"github.com/shineum/photoreport/internal/recipients"
	"github.com/shineum/photoreport/internal/validate"
)

// Console progress lines printed once the message is assembled.
const (
	msgImagesBuilt = "Message with images built. About to send mail."
	msgPDFBuilt    = "Message with pdf built. About to send mail."
)

// builder assembles the message of one send variant from the validated
// arguments and prints its own progress.
type builder func(rt *runtimeState, sender string, to []string, source string) (*email.Message, error)

func newSendCommand(rt *runtimeState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <sender> <receivers-file> <image-dir>",
		Short: "Mail every image beneath image-dir to each receiver",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.send(cmd, args, validate.ImageMail, buildImageMessage)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pdf <sender> <receivers-file> <pdf-file>",
		Short: "Mail a PDF report to each receiver",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.send(cmd, args, validate.PDFMail, buildPDFMessage)
		},
	})
	return cmd
}

// send runs validate, extract, build and transmit. The validator sees the
// argument vector with the command path in front.
func (rt *runtimeState) send(cmd *cobra.Command, args []string, check func([]string, string) validate.Result, build builder) error {
	out := rt.opts.Out
	cfg := rt.cfg

	argv := append([]string{cmd.CommandPath()}, args...)
	if res := check(argv, cfg.Receivers.Charset); !res.Valid {
		fmt.Fprintln(out, res.Message)
		return ErrInvalidArguments
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sender, receiversFile, source := args[0], args[1], args[2]
	to, err := recipients.ReadFile(receiversFile, cfg.Receivers.Charset)
	if err != nil {
		return err
	}

	msg, err := build(rt, sender, to, source)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	prov, err := rt.opts.NewProvider(ctx, cfg, sender, out)
	if err != nil {
		return err
	}
	slog.Info("sending report",
		"provider", prov.Name(),
		"recipients", len(to),
		"attachments", len(msg.Attachments),
	)

	sent, err := mailer.Transmit(ctx, prov, sender, to, msg, out)
	if err != nil {
		slog.Error("send aborted", "sent", len(sent), "remaining", len(to)-len(sent), "error", err)
		return err
	}
	return nil
}

func buildImageMessage(rt *runtimeState, sender string, to []string, dir string) (*email.Message, error) {
	msg, paths, err := compose.ImageMessage(sender, to, dir, compose.TemplateFrom(rt.cfg.Templates.Image))
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		fmt.Fprintln(rt.opts.Out, p)
	}
	fmt.Fprintln(rt.opts.Out, msgImagesBuilt)
	return msg, nil
}

func buildPDFMessage(rt *runtimeState, sender string, to []string, path string) (*email.Message, error) {
	msg, err := compose.PDFMessage(sender, to, path, compose.TemplateFrom(rt.cfg.Templates.PDF))
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(rt.opts.Out, msgPDFBuilt)
	return msg, nil
}
