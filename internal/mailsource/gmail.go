package mailsource

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSource reads a mailbox through the Gmail REST API. Token refresh
// is handled transparently by the oauth2 transport; the token file must
// have been provisioned by a prior interactive authorization.
type GmailSource struct {
	svc      *gmail.Service
	excluded []string
	logger   *logrus.Logger
}

// NewGmail builds an authenticated Gmail client from a client-secret
// file and a cached token file.
func NewGmail(ctx context.Context, credentialsPath, tokenPath string, excluded []string, logger *logrus.Logger) (*GmailSource, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(creds, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oauth config: %w", err)
	}

	token, err := readToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	logger.WithField("token", tokenPath).Info("Connected to Gmail")
	return &GmailSource{
		svc:      svc,
		excluded: excluded,
		logger:   logger,
	}, nil
}

// readToken loads a cached OAuth token.
func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// ListRecentIDs returns up to limit most-recent message IDs.
func (g *GmailSource) ListRecentIDs(ctx context.Context, limit int) ([]string, error) {
	resp, err := g.svc.Users.Messages.List("me").MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// FetchBody fetches one message and extracts its plain-text body.
func (g *GmailSource) FetchBody(ctx context.Context, id string) (string, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return extractGmailText(msg, g.excluded)
}

// Close is a no-op; the Gmail client holds no persistent connection.
func (g *GmailSource) Close() error {
	return nil
}

// extractGmailText pulls the trimmed plain-text body out of a full-format
// Gmail message, preferring text/plain parts over the top-level body.
func extractGmailText(msg *gmail.Message, excluded []string) (string, error) {
	if msg.Payload == nil {
		return "", ErrNoTextBody
	}

	for _, header := range msg.Payload.Headers {
		if header.Name == "From" && senderExcluded(header.Value, excluded) {
			return "", ErrExcludedSender
		}
	}

	for _, part := range msg.Payload.Parts {
		if part.MimeType != "text/plain" || part.Body == nil || part.Body.Data == "" {
			continue
		}
		text, err := decodeBody(part.Body.Data)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}

	return "", ErrNoTextBody
}

// decodeBody decodes Gmail's URL-safe base64 body data, with or without
// padding.
func decodeBody(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode message body: %w", err)
	}
	return strings.TrimSpace(string(decoded)), nil
}
