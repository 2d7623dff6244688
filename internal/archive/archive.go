// Package archive keeps a copy of every calendar feed that was fetched, in
// S3-compatible storage, so a bad sync can be traced back to its input.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	keyPrefix   = "feeds"
	keyLayout   = "2006-01-02T150405.000Z"
	contentType = "text/calendar; charset=utf-8"

	encryptedSuffix      = ".enc"
	encryptedContentType = "application/octet-stream"

	// ScopePreview files snapshots fetched for the read-only reservations view.
	ScopePreview = "preview"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string

	// Passphrase, when set, encrypts every snapshot before upload.
	Passphrase string
}

// Enabled reports whether enough is configured to upload anything.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Archive struct {
	client     s3Client
	bucket     string
	passphrase string
	now        func() time.Time
}

// New returns nil when cfg is not enabled; a nil *Archive stores nothing.
func New(cfg Config) *Archive {
	if !cfg.Enabled() {
		return nil
	}
	return &Archive{client: newS3Client(cfg), bucket: cfg.Bucket, passphrase: cfg.Passphrase, now: time.Now}
}

func newS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// ListingScope is the key scope for a listing's sync snapshots.
func ListingScope(listingID int64) string {
	return strconv.FormatInt(listingID, 10)
}

// Key is where a snapshot taken at t is stored.
func Key(scope string, t time.Time) string {
	return fmt.Sprintf("%s/%s/%s.ics", keyPrefix, scope, t.UTC().Format(keyLayout))
}

// Store uploads body and returns its key. Encrypted snapshots get an
// ".enc" suffix.
func (a *Archive) Store(ctx context.Context, scope string, body []byte) (string, error) {
	if a == nil {
		return "", nil
	}
	key := Key(scope, a.now())
	ctype := contentType
	if a.passphrase != "" {
		sealed, err := Encrypt(body, a.passphrase)
		if err != nil {
			return "", fmt.Errorf("encrypt %s: %w", key, err)
		}
		body = sealed
		key += encryptedSuffix
		ctype = encryptedContentType
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(ctype),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
