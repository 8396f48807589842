// Package s3io presigns uploads of appeal supporting documents to S3.
package s3io

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

var ErrNotConfigured = errors.New("document uploads are not configured")

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignPut generates a presigned URL for uploading an object to S3.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(contentType),
		Metadata:             meta,
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	}

	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}

type Upload struct {
	Name         string `json:"name"`
	Key          string `json:"key"`
	PresignedURL string `json:"presigned_url"`
	ContentType  string `json:"content_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Documents issues upload URLs for supporting documents into Bucket.
type Documents struct {
	Presigner Presigner
	Bucket    string
	TTL       time.Duration
}

// NewDocuments wires a presign client from cfg. usePathStyle is needed for
// LocalStack-style endpoints.
func NewDocuments(cfg aws.Config, bucket string, ttl time.Duration, usePathStyle bool) *Documents {
	c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
	return &Documents{Presigner: s3.NewPresignClient(c), Bucket: bucket, TTL: ttl}
}

// PresignDocument validates filename and returns a presigned PUT for it under
// the claim's prefix.
func (d *Documents) PresignDocument(ctx context.Context, claimID, filename string) (Upload, error) {
	if d == nil || d.Presigner == nil || d.Bucket == "" {
		return Upload{}, ErrNotConfigured
	}
	ct, err := ValidateFilename(filename)
	if err != nil {
		return Upload{}, err
	}
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	key := BuildKey(claimID, ulid.Make().String(), filename)
	meta := map[string]string{"claim_id": claimID, "filename": SanitizeName(filename)}
	url, ttl, err := PresignPut(ctx, d.Presigner, d.Bucket, key, ct, meta, ttl)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Name:         filename,
		Key:          key,
		PresignedURL: url,
		ContentType:  ct,
		ExpiresIn:    int(ttl.Seconds()),
	}, nil
}
