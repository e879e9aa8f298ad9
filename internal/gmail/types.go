package gmail

import "time"

// MimeTypePlainText is the MIME type of plain-text body parts.
const MimeTypePlainText = "text/plain"

// Header is a single message header.
type Header struct {
	Name  string
	Value string
}

// Body is the body of a message part as returned by the API. Data is
// base64url encoded; AttachmentID is set when the content has to be fetched
// separately.
type Body struct {
	Data         string
	Size         int64
	AttachmentID string
}

// MessagePart is a node of a message's MIME tree.
type MessagePart struct {
	ID       string
	MimeType string
	Headers  []Header
	Body     Body
	Parts    []MessagePart
}

// Message is a parsed Gmail API message.
type Message struct {
	ID       string
	ThreadID string
	Date     time.Time
	Snippet  string
	// Subject is the value of the first Subject header of the payload.
	Subject string
	// Parts is the payload flattened with children before their parent.
	Parts []MessagePart
}

// BodyPart is a decoded message part body.
type BodyPart struct {
	Body     string
	MimeType string
}

// Email is a message with decoded body parts.
type Email struct {
	ID        string
	ThreadID  string
	Subject   string
	Date      time.Time
	BodyParts []BodyPart
}

// PlainTextParts returns the text/plain body parts.
func (e Email) PlainTextParts() []BodyPart {
	return e.PartsWithMimeType(MimeTypePlainText)
}

// PartsWithMimeType returns the body parts with the given MIME type, in order.
func (e Email) PartsWithMimeType(mimeType string) []BodyPart {
	var parts []BodyPart
	for _, p := range e.BodyParts {
		if p.MimeType == mimeType {
			parts = append(parts, p)
		}
	}
	return parts
}

// Thread is a Gmail thread with its converted messages.
type Thread struct {
	ID     string
	Emails []Email
}

// Threads is the result of a thread query in listing order.
type Threads []Thread

// Emails returns the messages of all threads, thread by thread.
func (t Threads) Emails() []Email {
	var emails []Email
	for _, thread := range t {
		emails = append(emails, thread.Emails...)
	}
	return emails
}
