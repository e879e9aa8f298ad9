package gmail

import (
	"fmt"
	"log/slog"

	"github.com/teemow/gmailplayground/internal/logging"
)

// Progress tracks paging through a thread listing.
type Progress struct {
	// Requests is the number of list requests made.
	Requests int
	// Received is the number of threads listed so far.
	Received int
	// LastReceived is the number of threads in the latest page.
	LastReceived int
	// Processed counts listed threads handed to processing, including the one
	// that hit the limit.
	Processed int
	// Limit is the maximum number of threads to process; 0 means no limit.
	Limit int
}

func (p *Progress) registerPage(n int) {
	p.Requests++
	p.Received += n
	p.LastReceived = n
	slog.Info(fmt.Sprintf("[Request #: %d] Received %d more threads", p.Requests, n))
}

func (p *Progress) limitReached() bool {
	return p.Limit > 0 && p.Processed > p.Limit
}

// partRef locates a body part inside the thread being converted.
type partRef struct {
	messageID    string
	partID       string
	attachmentID string
	email        int
	part         int
}

// conversionContext collects body parts that could not be decoded and parts
// whose body has to be fetched separately.
type conversionContext struct {
	progress     Progress
	decodeErrors []partRef
	emptyBodies  []partRef
}

// convertThread turns parsed messages into a Thread. Empty bodies are
// registered in emptyBodies with indexes into the returned thread.
func (cc *conversionContext) convertThread(threadID string, messages []Message) Thread {
	thread := Thread{ID: threadID, Emails: make([]Email, 0, len(messages))}
	for i, m := range messages {
		email := Email{
			ID:        m.ID,
			ThreadID:  threadID,
			Subject:   m.Subject,
			Date:      m.Date,
			BodyParts: make([]BodyPart, 0, len(m.Parts)),
		}
		for j, part := range m.Parts {
			ref := partRef{
				messageID:    m.ID,
				partID:       part.ID,
				attachmentID: part.Body.AttachmentID,
				email:        i,
				part:         j,
			}
			bp := BodyPart{MimeType: part.MimeType}
			switch {
			case part.Body.Data == "":
				cc.emptyBodies = append(cc.emptyBodies, ref)
			default:
				decoded, err := decodeBody(part.Body.Data)
				if err != nil {
					slog.Error("failed to decode body, keeping encoded data",
						logging.MessageID(m.ID),
						slog.String("part_id", part.ID),
						logging.Err(err))
					bp.Body = part.Body.Data
					cc.decodeErrors = append(cc.decodeErrors, ref)
				} else {
					bp.Body = decoded
				}
			}
			email.BodyParts = append(email.BodyParts, bp)
		}
		thread.Emails = append(thread.Emails, email)
	}
	return thread
}

// handleDecodeErrors logs every part that kept its encoded data and clears the list.
func (cc *conversionContext) handleDecodeErrors() {
	for _, ref := range cc.decodeErrors {
		slog.Warn("message part kept undecoded body",
			logging.MessageID(ref.messageID),
			slog.String("part_id", ref.partID))
	}
	if n := len(cc.decodeErrors); n > 0 {
		slog.Warn("some message parts could not be decoded", slog.Int("count", n))
	}
	cc.decodeErrors = nil
}
