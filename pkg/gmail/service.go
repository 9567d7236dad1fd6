package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	integrationdomain "flowdesk-backend/internal/integration/domain"
	"flowdesk-backend/pkg/gclient"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// Service wraps the Gmail API for the inbox ingestion pipeline.
type Service struct {
	limiter *gclient.RateLimiter
}

// NewService creates a new Gmail service wrapper.
func NewService() *Service {
	return &Service{limiter: gclient.NewRateLimiter(gclient.ServiceGmail)}
}

func (s *Service) gmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	srv, err := gmail.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListRecent returns up to maxResults most recent inbox messages with full
// bodies, newest first.
func (s *Service) ListRecent(ctx context.Context, accessToken string, maxResults int) ([]*integrationdomain.MailMessage, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	listResp, err := srv.Users.Messages.List(gmailUser).
		LabelIds("INBOX").
		MaxResults(int64(maxResults)).
		Context(ctx).Do()
	if err != nil {
		return nil, s.wrap(err)
	}

	messages := make([]*integrationdomain.MailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		full, err := srv.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, s.wrap(err)
		}
		messages = append(messages, convertMessage(full))
	}
	return messages, nil
}

// Send delivers the mail through Gmail and returns the provider message id.
// ReplyToMessageID threads the outgoing mail under the referenced message.
func (s *Service) Send(ctx context.Context, accessToken string, mail *integrationdomain.OutgoingMail) (string, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var raw bytes.Buffer
	raw.WriteString(fmt.Sprintf("To: %s\r\n", mail.To))
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(mail.Subject)))
	raw.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))

	var threadID string
	if mail.ReplyToMessageID != "" {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
		original, err := srv.Users.Messages.Get(gmailUser, mail.ReplyToMessageID).Format("metadata").Context(ctx).Do()
		if err != nil {
			return "", s.wrap(err)
		}
		threadID = original.ThreadId
		if rfcID := getHeader(original.Payload.Headers, "Message-ID"); rfcID != "" {
			raw.WriteString(fmt.Sprintf("In-Reply-To: %s\r\n", rfcID))
			raw.WriteString(fmt.Sprintf("References: %s\r\n", rfcID))
		}
	}

	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	raw.WriteString(mail.Body)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw.Bytes()),
		ThreadId: threadID,
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	sent, err := srv.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	if err != nil {
		return "", s.wrap(err)
	}
	return sent.Id, nil
}

func (s *Service) wrap(err error) error {
	wrapped := gclient.WrapError(err)
	var rl *integrationdomain.RateLimitedError
	if errors.As(wrapped, &rl) {
		s.limiter.RecordRateLimitError(int(rl.RetryAfter / time.Second))
	}
	return wrapped
}

// Helper functions

func convertMessage(msg *gmail.Message) *integrationdomain.MailMessage {
	body, isHTML := getMessageBody(msg.Payload)
	if isHTML {
		body = stripHTML(body)
	}

	return &integrationdomain.MailMessage{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		From:       getHeader(msg.Payload.Headers, "From"),
		To:         getHeader(msg.Payload.Headers, "To"),
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		Snippet:    msg.Snippet,
		Body:       body,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func getMessageBody(payload *gmail.MessagePart) (string, bool) {
	if payload == nil {
		return "", false
	}
	// The payload itself may be the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, htmlBody != ""
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(body string) string {
	text := htmlTagRe.ReplaceAllString(body, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	return strings.Join(strings.Fields(text), " ")
}
