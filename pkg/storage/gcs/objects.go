package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	storageHost    = "https://storage.googleapis.com"
	maxSignedTTL   = 7 * 24 * time.Hour
	defaultSignRPS = 50
)

// ErrSigningUnavailable is returned when the client has no service account
// key to sign with.
var ErrSigningUnavailable = errors.New("gcs: url signing unavailable without service account key")

func newSignLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = defaultSignRPS
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Upload streams body into bucket/object using the JSON API simple upload.
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) error {
	if err := c.ready(); err != nil {
		return err
	}
	bucket = c.bucketOrDefault(bucket)
	switch {
	case bucket == "":
		return errors.New("bucket is required")
	case object == "":
		return errors.New("object is required")
	case contentType == "":
		return errors.New("content type is required")
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.endpoint, url.PathEscape(bucket), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("gcs upload failed", resp)
	}
	return nil
}

// DeleteObject removes bucket/object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if err := c.ready(); err != nil {
		return err
	}
	bucket = c.bucketOrDefault(bucket)
	if bucket == "" || object == "" {
		return errors.New("bucket and object are required")
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.endpoint, url.PathEscape(bucket), url.PathEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("gcs delete failed", resp)
	}
	return nil
}

// SignedURL returns a V2 signed PUT URL for direct uploads.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	return c.sign(http.MethodPut, bucket, object, contentType, expires)
}

// SignedReadURL returns a V2 signed GET URL. Issuance is throttled so a burst
// of listing requests cannot saturate the signer.
func (c *Client) SignedReadURL(ctx context.Context, bucket, object string, expires time.Duration) (string, error) {
	if c != nil && c.signLimiter != nil {
		if err := c.signLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("gcs sign throttle: %w", err)
		}
	}
	return c.sign(http.MethodGet, bucket, object, "", expires)
}

// PublicURL returns the unsigned object URL. It only works for publicly
// readable objects.
func (c *Client) PublicURL(bucket, object string) (string, error) {
	if c == nil {
		return "", errors.New("gcs client not initialized")
	}
	bucket = c.bucketOrDefault(bucket)
	if bucket == "" || object == "" {
		return "", errors.New("bucket and object are required")
	}
	base := c.publicBaseURL
	if base == "" {
		base = storageHost
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, escapeObject(object)), nil
}

func (c *Client) sign(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", ErrSigningUnavailable
	}
	bucket = c.bucketOrDefault(bucket)
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if object == "" {
		return "", errors.New("object is required")
	}
	if expires <= 0 || expires > maxSignedTTL {
		return "", fmt.Errorf("expiry must be within (0, %s]", maxSignedTTL)
	}

	expiry := strconv.FormatInt(time.Now().Add(expires).Unix(), 10)
	resource := "/" + bucket + "/" + object
	payload := strings.Join([]string{method, "", contentType, expiry, resource}, "\n")

	hash := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.signer.key, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	q := url.Values{}
	q.Set("GoogleAccessId", c.signer.email)
	q.Set("Expires", expiry)
	q.Set("Signature", base64.StdEncoding.EncodeToString(sig))

	return fmt.Sprintf("%s/%s/%s?%s", storageHost, bucket, escapeObject(object), q.Encode()), nil
}

func (c *Client) bucketOrDefault(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return c.defaultBucket
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
