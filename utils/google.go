package utils

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/script/v1"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested for every Google client the service builds.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveScope,
	script.ScriptProjectsScope,
	gmail.GmailSendScope,
}

// ErrNoToken is returned when an OAuth client credentials file is configured
// but no cached user token exists yet.
var ErrNoToken = errors.New("no cached oauth token, run `backoffice auth` first")

// GoogleServices bundles the API clients shared by the store, provisioner
// and mailer.
type GoogleServices struct {
	Sheets *sheets.Service
	Drive  *drive.Service
	Script *script.Service
	Gmail  *gmail.Service
}

// NewGoogleServices reads credentialsFile and builds every service on one
// authorised HTTP client. A service-account key is used directly (optionally
// impersonating subject); an OAuth client secret needs a token cached at tokenFile.
func NewGoogleServices(ctx context.Context, credentialsFile, tokenFile, subject string) (*GoogleServices, error) {
	client, err := HTTPClient(ctx, credentialsFile, tokenFile, subject)
	if err != nil {
		return nil, err
	}
	return ServicesFromClient(ctx, client)
}

// ServicesFromClient builds the services on an existing client. Extra options
// such as option.WithEndpoint are applied to every service.
func ServicesFromClient(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleServices, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}
	scriptService, err := script.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Apps Script service: %w", err)
	}
	gmailService, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &GoogleServices{
		Sheets: sheetsService,
		Drive:  driveService,
		Script: scriptService,
		Gmail:  gmailService,
	}, nil
}

// HTTPClient returns an authorised client for credentialsFile.
func HTTPClient(ctx context.Context, credentialsFile, tokenFile, subject string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	if isServiceAccount(b) {
		jwtConfig, err := google.JWTConfigFromJSON(b, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		jwtConfig.Subject = subject
		return jwtConfig.Client(ctx), nil
	}

	config, err := OAuthConfig(b)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}
	return config.Client(ctx, token), nil
}

// OAuthConfig parses an installed-app client secret.
func OAuthConfig(credentials []byte) (*oauth2.Config, error) {
	config, err := google.ConfigFromJSON(credentials, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return config, nil
}

// Authorize runs the copy-paste OAuth consent flow: it prints the consent
// URL to out, reads the code from in and caches the token at tokenFile.
func Authorize(ctx context.Context, config *oauth2.Config, tokenFile string, in io.Reader, out io.Writer) error {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following URL in your browser then enter the authorization code:\n%v\n", authURL)
	fmt.Fprint(out, "Enter code: ")

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("empty authorization code")
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(tokenFile, token)
}

func isServiceAccount(credentials []byte) bool {
	var key struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(credentials, &key) == nil && key.Type == "service_account"
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
