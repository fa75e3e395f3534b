package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"sync"

	"google.golang.org/api/gmail/v1"
)

// GmailSender sends through the Gmail API as the authorised user.
type GmailSender struct {
	service *gmail.Service
	from    string
}

// NewGmailSender sends as from; "me" or "" lets Gmail fill the From header.
func NewGmailSender(service *gmail.Service, from string) *GmailSender {
	return &GmailSender{service: service, from: from}
}

func (s *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := BuildMIME(s.from, msg)
	if err != nil {
		return err
	}
	_, err = s.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}

// BuildMIME encodes msg as a multipart/alternative RFC 5322 message.
// From and To values carrying CR or LF are refused. The subject is B-encoded
// whenever it holds non-printable bytes, so it cannot break the header block.
func BuildMIME(from string, msg Message) ([]byte, error) {
	for name, v := range map[string]string{"From": from, "To": msg.To} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("%s header contains a line break", name)
		}
	}
	if msg.To == "" {
		return nil, fmt.Errorf("To header is empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(pw)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if from != "" && from != "me" {
		fmt.Fprintf(&out, "From: %s\r\n", from)
	}
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", msg.Subject))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// LogSender only logs messages. Used when no Google credentials are configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.Info("email not sent, log sender active", "to", msg.To, "subject", msg.Subject)
	return nil
}

// RecordingSender keeps every message in memory. Err, when set, is returned
// instead of recording.
type RecordingSender struct {
	Err error

	mu       sync.Mutex
	messages []Message
}

func (s *RecordingSender) Send(_ context.Context, msg Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
