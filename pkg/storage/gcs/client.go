package gcs

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	storageScope = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout  = 5 * time.Second
	httpTimeout  = 30 * time.Second
)

// Client talks to the Cloud Storage JSON API over an oauth2-authorized HTTP
// client and signs V2 URLs locally when a service account key is available.
type Client struct {
	http          *http.Client
	endpoint      string
	defaultBucket string
	publicBaseURL string
	signer        *urlSigner
	signLimiter   *rate.Limiter
}

// urlSigner is nil on metadata or user credentials; signing then fails with
// ErrSigningUnavailable and callers fall back to public URLs.
type urlSigner struct {
	email string
	key   *rsa.PrivateKey
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	creds, err := loadCredentials(ctx, gcp)
	if err != nil {
		return nil, err
	}
	signer, err := signerFromJSON(creds.JSON)
	if err != nil {
		return nil, err
	}

	client := &Client{
		http: &http.Client{
			Timeout:   httpTimeout,
			Transport: &oauth2.Transport{Source: creds.TokenSource},
		},
		endpoint:      storageHost,
		defaultBucket: cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		signer:        signer,
		signLimiter:   newSignLimiter(cfg.SignsPerSecond),
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"bucket":          client.defaultBucket,
			"signing_enabled": signer != nil,
		})
		logg.Info(logCtx, "gcs client initialized")
	}
	return client, nil
}

// loadCredentials prefers inline JSON, then a key file, then Application
// Default Credentials (metadata server on GCP).
func loadCredentials(ctx context.Context, gcp config.GCPConfig) (*google.Credentials, error) {
	raw := []byte(gcp.CredentialsJSON)
	if len(raw) == 0 && gcp.ApplicationCredentials != "" {
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = b
	}
	if len(raw) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, raw, storageScope)
		if err != nil {
			return nil, fmt.Errorf("parsing gcp credentials: %w", err)
		}
		return creds, nil
	}
	creds, err := google.FindDefaultCredentials(ctx, storageScope)
	if err != nil {
		return nil, fmt.Errorf("finding default gcp credentials: %w", err)
	}
	return creds, nil
}

func signerFromJSON(raw []byte) (*urlSigner, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	conf, err := google.JWTConfigFromJSON(raw, storageScope)
	if err != nil {
		// Not a service account key.
		return nil, nil
	}
	if conf.Email == "" {
		return nil, errors.New("service account credentials missing client_email")
	}
	key, err := parsePrivateKey(conf.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &urlSigner{email: conf.Email, key: key}, nil
}

func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("service account private key is not PEM encoded")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("service account private key is not RSA")
		}
		return key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing service account private key: %w", err)
	}
	return key, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	if c != nil && c.http != nil {
		c.http.CloseIdleConnections()
	}
	return nil
}

// Ping lists at most one object, which needs storage.objects.list on the
// default bucket.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.endpoint, url.PathEscape(c.defaultBucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return statusError("gcs object check failed", resp)
	}
	return nil
}

func (c *Client) ready() error {
	if c == nil || c.http == nil || c.endpoint == "" {
		return errors.New("gcs client not initialized")
	}
	return nil
}

func statusError(prefix string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, msg)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
