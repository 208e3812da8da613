// Package archive exports destroyed tenant records to S3-compatible
// object storage for audit retention. The durable store keeps destroyed
// records too; the archive is the off-box copy that survives database
// retention policies.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bluefairy/tenantd/internal/store"
)

// S3Archiver writes one JSON object per destroyed tenant.
type S3Archiver struct {
	s3     *s3.Client
	bucket string
}

// entry is the archived shape of a record. The auth token is deliberately
// absent: the archive is an audit artifact, not a secret store.
type entry struct {
	ID         string    `json:"id"`
	OwnerRef   string    `json:"owner_ref"`
	Slug       string    `json:"slug"`
	Status     string    `json:"status"`
	Region     string    `json:"region"`
	Endpoint   string    `json:"endpoint,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

// New creates an archiver for the given S3-compatible endpoint.
func New(endpoint, region, bucket, accessKey, secretKey string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = false
	})

	return &S3Archiver{s3: client, bucket: bucket}, nil
}

// NewWithClient wraps an existing S3 client. Used by tests.
func NewWithClient(client *s3.Client, bucket string) *S3Archiver {
	return &S3Archiver{s3: client, bucket: bucket}
}

// EnsureBucket creates the archive bucket if it does not already exist.
// Called once at startup; a bucket owned by us is not an error.
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil && !isBucketExists(err) {
		return fmt.Errorf("failed to ensure archive bucket %s: %w", a.bucket, err)
	}
	return nil
}

func isBucketExists(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *types.BucketAlreadyExists
	if errors.As(err, &exists) {
		return true
	}

	// S3-compatible services do not always return the SDK's typed
	// errors; fall back to the API error code.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
	}
	return false
}

// Archive uploads the record under tenants/<id>.json.
func (a *S3Archiver) Archive(ctx context.Context, record *store.TenantRecord) error {
	data, err := json.MarshalIndent(entry{
		ID:         record.ID,
		OwnerRef:   record.OwnerRef,
		Slug:       record.Slug,
		Status:     string(record.Status),
		Region:     record.Region,
		Endpoint:   record.Endpoint,
		CreatedAt:  record.CreatedAt,
		ArchivedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive entry: %w", err)
	}

	key := Key(record.ID)
	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive tenant %s: %w", record.ID, err)
	}
	return nil
}

// Key returns the object key for a tenant id.
func Key(tenantID string) string {
	return "tenants/" + tenantID + ".json"
}
