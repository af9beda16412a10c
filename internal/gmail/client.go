// Package gmail wraps the Gmail API: OAuth bootstrap, message listing
// and fetch, label CRUD, and push-notification management.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"gmailcat/internal/config"
	"gmailcat/internal/retry"
)

const userID = "me"

// Client is the mail-service collaborator. It owns the OAuth token and
// credentials files; callers see typed models and sentinel errors.
type Client struct {
	svc    *gmail.Service
	cfg    *config.Config
	policy retry.Policy
}

// NewClient authenticates against the Gmail API using the configured
// credentials file, reusing a stored token when one exists and running
// the interactive auth-code flow otherwise.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	b, err := os.ReadFile(cfg.Gmail.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file %s: %w", cfg.Gmail.CredentialsFile, err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, cfg.Gmail.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials file: %w", err)
	}

	httpClient, err := oauthClient(ctx, oauthCfg, cfg.Gmail.TokenFile)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	log.Info("Gmail API client initialized")
	return &Client{svc: svc, cfg: cfg, policy: retry.DefaultPolicy()}, nil
}

func oauthClient(ctx context.Context, oauthCfg *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		tok, err = tokenFromWeb(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			log.Warnf("unable to save oauth token: %v", err)
		}
	}
	return oauthCfg.Client(ctx, tok), nil
}

func tokenFromWeb(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := oauthCfg.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token: %w", err)
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
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	log.Infof("saving oauth token to %s", path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
