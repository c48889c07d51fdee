// Package graph implements a Provider that sends messages via the Microsoft Graph API.
package graph

import (
	"encoding/base64"

	"github.com/shineum/photoreport/internal/email"
)

// fileAttachmentType is the OData type of an inline file attachment.
const fileAttachmentType = "#microsoft.graph.fileAttachment"

// sendMailRequest is the request body of the sendMail action.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string           `json:"subject"`
	Body         messageBody      `json:"body"`
	ToRecipients []recipient      `json:"toRecipients"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// tokenResponse is the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildSendMailRequest addresses msg to the single recipient to.
func buildSendMailRequest(to string, msg *email.Message) *sendMailRequest {
	attachments := make([]fileAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, fileAttachment{
			ODataType:    fileAttachmentType,
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.Subject,
			Body: messageBody{
				ContentType: "text",
				Content:     msg.TextBody,
			},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: to}}},
			Attachments:  attachments,
		},
	}
}
