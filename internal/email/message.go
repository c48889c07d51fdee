// Package email defines the core message model shared by builders and transports.
package email

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"gopkg.in/gomail.v2"
)

// Message is a multipart mail with a plain-text body and binary attachments.
// To is informational: delivery addressing is done per recipient by the
// transport, not through this header.
type Message struct {
	From        string
	To          []string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ToHeader renders the recipient list the way it appears in the To header.
func (m *Message) ToHeader() string {
	return strings.Join(m.To, ", ")
}

// WriteTo renders the message as RFC 5322 text with MIME parts.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	return m.mime().WriteTo(w)
}

// Bytes renders the message into memory.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Message) mime() *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	if len(m.To) > 0 {
		msg.SetHeader("To", m.To...)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.TextBody)

	for _, att := range m.Attachments {
		content := att.Content
		msg.Attach(att.Filename,
			gomail.Rename(att.Filename),
			gomail.SetHeader(map[string][]string{
				"Content-Type":        {att.ContentType},
				"Content-Disposition": {contentDisposition(att.Filename)},
			}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		)
	}
	return msg
}

// contentDisposition renders an attachment disposition. Names that need it
// are quoted or RFC 2231 encoded, since gomail writes file headers verbatim.
func contentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
