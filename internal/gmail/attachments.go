package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailplayground/internal/instrumentation"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// GetAttachment retrieves and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return "", fmt.Errorf("attachmentID is required")
	}

	var attachment *gmailapi.MessagePartBody
	err := c.caller.Do(ctx, instrumentation.OperationAttachmentsGet, func(ctx context.Context) error {
		var err error
		attachment, err = c.svc.Messages.Attachments.Get(userMe, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return "", fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	data, err := decodeBody(attachment.Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}
