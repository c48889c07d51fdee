// Package compose builds the image and PDF report messages.
//
// Attachments are read fully into memory and no size limit is applied;
// callers choosing large source directories accept the memory cost.
package compose

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shineum/photoreport/internal/config"
	"github.com/shineum/photoreport/internal/email"
	"github.com/shineum/photoreport/internal/media"
)

// pdfContentType is the media type of the single PDF report attachment.
const pdfContentType = "application/pdf"

// Template is the fixed subject and plain-text body of a message variant.
type Template struct {
	Subject string
	Body    string
}

// Default templates of the two variants.
var (
	ImageTemplate = Template{Subject: config.DefaultImageSubject, Body: config.DefaultImageBody}
	PDFTemplate   = Template{Subject: config.DefaultPDFSubject, Body: config.DefaultPDFBody}
)

// TemplateFrom converts a configured subject/body pair.
func TemplateFrom(c config.TemplateConfig) Template {
	return Template{Subject: c.Subject, Body: c.Body}
}

// ImageMessage builds a message that carries every image found beneath dir.
// The returned paths list the attached files in attachment order.
func ImageMessage(sender string, recipients []string, dir string, tmpl Template) (*email.Message, []string, error) {
	paths, err := media.FindImages(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan image directory: %w", err)
	}

	msg := newMessage(sender, recipients, tmpl)
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read image %s: %w", path, err)
		}
		name := filepath.Base(path)
		msg.Attachments = append(msg.Attachments, email.Attachment{
			Filename:    name,
			ContentType: media.ContentType(name, content),
			Content:     content,
		})
		slog.Debug("attached image", "path", path, "bytes", len(content))
	}

	return msg, paths, nil
}

// PDFMessage builds a message carrying the PDF at path. The attachment's
// filename is the path exactly as given.
func PDFMessage(sender string, recipients []string, path string, tmpl Template) (*email.Message, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	msg := newMessage(sender, recipients, tmpl)
	msg.Attachments = []email.Attachment{{
		Filename:    path,
		ContentType: pdfContentType,
		Content:     content,
	}}
	return msg, nil
}

func newMessage(sender string, recipients []string, tmpl Template) *email.Message {
	to := make([]string, len(recipients))
	copy(to, recipients)
	return &email.Message{
		From:     sender,
		To:       to,
		Subject:  tmpl.Subject,
		TextBody: tmpl.Body,
	}
}
