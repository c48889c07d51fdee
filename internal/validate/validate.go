// Package validate checks command-line arguments before any side effect runs.
// Failures are reported through Result, never as errors.
package validate

import (
	"os"

	"github.com/shineum/photoreport/internal/media"
	"github.com/shineum/photoreport/internal/recipients"
)

// ArchiveArgumentCount is the number of positional arguments of the archive tool.
const ArchiveArgumentCount = 1

// MailArgumentCount is the length of the mail tool's argument vector,
// program name included: program, sender, receivers file, source path.
const MailArgumentCount = 4

// Archive validation messages.
const (
	MsgArchiveCount   = "Please specify the path to an existing directory as a single argument."
	MsgArchiveMissing = "Please specify an existing path to a directory."
	MsgArchiveNotDir  = "Please specify a path to a directory, not a file!"
	MsgArchiveValid   = "No errors detected."
)

// Mail validation messages.
const (
	MsgMailUsage   = "Please specify the sender address, the receivers file and the attachment source."
	MsgMailInvalid = "Arguments invalid!"
	MsgMailValid   = "No errors detected."
)

// Result describes whether arguments passed a check.
type Result struct {
	Message string
	Valid   bool
}

// Archive validates the positional arguments of the archive tool: exactly one
// argument naming an existing directory.
func Archive(args []string) Result {
	if len(args) != ArchiveArgumentCount {
		return Result{Message: MsgArchiveCount}
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return Result{Message: MsgArchiveMissing}
	}
	if !info.IsDir() {
		return Result{Message: MsgArchiveNotDir}
	}
	return Result{Message: MsgArchiveValid, Valid: true}
}

// ImageMail validates the image mail tool's argument vector. The receivers
// file must yield at least one address and the source directory must hold at
// least one image at any depth. Semantic failures share one message.
func ImageMail(argv []string, charset string) Result {
	if len(argv) != MailArgumentCount {
		return Result{Message: MsgMailUsage}
	}
	if !hasReceivers(argv[2], charset) || !isImageSource(argv[3]) {
		return Result{Message: MsgMailInvalid}
	}
	return Result{Message: MsgMailValid, Valid: true}
}

// PDFMail validates the PDF mail tool's argument vector. The source must be
// an existing regular file.
func PDFMail(argv []string, charset string) Result {
	if len(argv) != MailArgumentCount {
		return Result{Message: MsgMailUsage}
	}
	if !hasReceivers(argv[2], charset) || !isRegularFile(argv[3]) {
		return Result{Message: MsgMailInvalid}
	}
	return Result{Message: MsgMailValid, Valid: true}
}

func hasReceivers(path, charset string) bool {
	list, err := recipients.ReadFile(path, charset)
	return err == nil && len(list) > 0
}

func isImageSource(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	return media.HasImages(path)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
