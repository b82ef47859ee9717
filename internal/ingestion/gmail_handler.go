package ingestion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// ProgressFunc reports fetch progress as a fraction in [0,1]
type ProgressFunc func(fraction float64, message string)

// GmailHandler fetches resume attachments from a Gmail inbox
type GmailHandler struct {
	service *gmail.Service
	logger  *zap.Logger
}

// NewGmailHandler creates a Gmail handler from an OAuth client secret file.
// The token is read from tokenPath; without one, the interactive browser flow runs once.
func NewGmailHandler(ctx context.Context, credentialsPath, tokenPath string, l *zap.Logger) (*GmailHandler, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	client, err := getClient(ctx, config, tokenPath)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	return &GmailHandler{
		service: srv,
		logger:  logger.OrNop(l),
	}, nil
}

func getClient(ctx context.Context, config *oauth2.Config, tokenPath string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// FetchResumes downloads PDF and ZIP attachments of messages matching subject
func (gh *GmailHandler) FetchResumes(ctx context.Context, subject string, progress ProgressFunc) ([]models.ResumeFile, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	user := "me"
	query := fmt.Sprintf("subject:%s has:attachment", subject)

	progress(0, "Searching for emails...")
	r, err := gh.service.Users.Messages.List(user).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}

	if len(r.Messages) == 0 {
		return nil, fmt.Errorf("no messages found with subject: %s", subject)
	}

	var files []models.ResumeFile
	for i, msg := range r.Messages {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		progress(float64(i)/float64(len(r.Messages)), fmt.Sprintf("Processing email %d of %d", i+1, len(r.Messages)))

		message, err := gh.service.Users.Messages.Get(user, msg.Id).Context(ctx).Do()
		if err != nil {
			gh.logger.Warn("Unable to retrieve message", zap.String("message_id", msg.Id), zap.Error(err))
			continue
		}

		sender := extractSenderName(message)
		for _, part := range resumeParts(message.Payload) {
			attachment, err := gh.service.Users.Messages.Attachments.Get(user, msg.Id, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				gh.logger.Warn("Unable to retrieve attachment", zap.String("file", part.Filename), zap.Error(err))
				continue
			}

			data, err := base64.URLEncoding.DecodeString(attachment.Data)
			if err != nil {
				gh.logger.Warn("Unable to decode attachment", zap.String("file", part.Filename), zap.Error(err))
				continue
			}

			files = append(files, models.ResumeFile{
				Name:        attachmentName(sender, part.Filename),
				ContentType: ResolveContentType(part.MimeType, data),
				Data:        data,
			})
			gh.logger.Info("Downloaded attachment", zap.String("file", part.Filename), zap.String("sender", sender))
		}
	}

	progress(1, fmt.Sprintf("Fetched %d attachments", len(files)))
	return files, nil
}

// resumeParts walks the MIME tree and returns the PDF and ZIP attachments
func resumeParts(part *gmail.MessagePart) []*gmail.MessagePart {
	if part == nil {
		return nil
	}

	var found []*gmail.MessagePart
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" && Accept(part.Filename, part.MimeType) {
		found = append(found, part)
	}
	for _, child := range part.Parts {
		found = append(found, resumeParts(child)...)
	}
	return found
}

// attachmentName prefixes the sender so attachments from different people do not collide
func attachmentName(sender, filename string) string {
	return fmt.Sprintf("%s_%s", sender, EntryName(filename))
}

// extractSenderName extracts the sender's name from email headers
func extractSenderName(message *gmail.Message) string {
	if message.Payload == nil {
		return "Unknown"
	}
	for _, header := range message.Payload.Headers {
		if header.Name == "From" {
			// "Name <email@example.com>"
			from := header.Value
			if idx := strings.Index(from, "<"); idx > 0 {
				name := strings.TrimSpace(from[:idx])
				name = strings.Trim(name, `"`)
				return strings.ReplaceAll(name, " ", "")
			}
			if idx := strings.Index(from, "@"); idx > 0 {
				return from[:idx]
			}
			return "Unknown"
		}
	}
	return "Unknown"
}
