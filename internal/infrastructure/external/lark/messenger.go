package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/elevix/approval-flow/internal/application/port"
)

// Messenger implements port.Notifier by delivering rich-text messages
// addressed by e-mail. Recipients are resolved by Lark; an address Lark
// does not know is an error for that recipient only.
type Messenger struct {
	client *Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark notification adapter
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// Send delivers the message to every recipient, continuing past
// per-recipient failures and reporting the first error encountered.
func (m *Messenger) Send(ctx context.Context, recipients []string, subject, body string) error {
	content, err := postContent(subject, body)
	if err != nil {
		return fmt.Errorf("failed to build message content: %w", err)
	}

	var firstErr error
	for _, email := range recipients {
		if email == "" {
			continue
		}
		if err := m.send(ctx, email, content); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Messenger) send(ctx context.Context, email, content string) error {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("email").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(email).
			MsgType("post").
			Content(content).
			Build()).
		Build()

	resp, err := m.client.SDK().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("recipient", email),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("recipient", email),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("recipient", email))

	return nil
}

// postContent builds a Lark rich-text ("post") payload with the subject
// as title and the body as a single text block.
func postContent(subject, body string) (string, error) {
	payload := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"title": subject,
			"content": [][]map[string]interface{}{
				{{"tag": "text", "text": body}},
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var _ port.Notifier = (*Messenger)(nil)
