package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound reports that the durable tier has no object at the requested
// key. Callers treat it as an empty value, not a failure.
var ErrNotFound = errors.New("storage: object not found")

// blobAPI is the minimal S3 interface required by Blob.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type blobAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Blob is the durable tier, backed by an S3 bucket.
type Blob struct {
	api    blobAPI
	bucket string
}

// NewBlob creates a Blob over the given bucket.
func NewBlob(api blobAPI, bucket string) (*Blob, error) {
	if api == nil {
		return nil, errors.New("storage: blob api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket must not be empty")
	}
	return &Blob{api: api, bucket: bucket}, nil
}

// Get reads the object at key. Returns ErrNotFound when no object exists.
func (b *Blob) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("storage: blob get %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: blob read %q: %w", key, err)
	}
	return body, nil
}

// Put writes value to key. Public objects get a public-read ACL so they can
// be served directly from the bucket.
func (b *Blob) Put(ctx context.Context, key string, value []byte, public bool) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	}
	if public {
		in.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := b.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("storage: blob put %q: %w", key, err)
	}
	return nil
}
