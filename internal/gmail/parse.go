package gmail

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
)

// parseMessage converts an API message into a Message.
func parseMessage(m *gmailapi.Message) Message {
	payload := parsePart(m.Payload)
	return Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Date:     time.UnixMilli(m.InternalDate).Local(),
		Snippet:  m.Snippet,
		Subject:  subject(payload.Headers),
		Parts:    flattenParts(payload),
	}
}

func parsePart(p *gmailapi.MessagePart) MessagePart {
	if p == nil {
		return MessagePart{}
	}
	part := MessagePart{
		ID:       p.PartId,
		MimeType: p.MimeType,
	}
	for _, h := range p.Headers {
		if h == nil {
			continue
		}
		part.Headers = append(part.Headers, Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		part.Body = Body{
			Data:         p.Body.Data,
			Size:         p.Body.Size,
			AttachmentID: p.Body.AttachmentId,
		}
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, parsePart(child))
	}
	return part
}

// flattenParts returns every part of the tree rooted at p, children first.
func flattenParts(p MessagePart) []MessagePart {
	var parts []MessagePart
	for _, child := range p.Parts {
		parts = append(parts, flattenParts(child)...)
	}
	return append(parts, p)
}

func subject(headers []Header) string {
	for _, h := range headers {
		if h.Name == "Subject" {
			return h.Value
		}
	}
	return ""
}

// decodeBody decodes base64url data, falling back to standard base64.
func decodeBody(data string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("body data is not valid base64 (%d bytes)", len(data))
}

var replyPrefix = regexp.MustCompile(`(?i)^\s*((re|fwd?|aw|wg)\s*:\s*)+`)

// normalizeSubject strips reply and forward prefixes.
func normalizeSubject(s string) string {
	return strings.TrimSpace(replyPrefix.ReplaceAllString(s, ""))
}
