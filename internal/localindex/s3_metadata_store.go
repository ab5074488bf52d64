package localindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3MetadataStore persists Metadata (not vector-store data) to an S3
// bucket, for deployments that run the local index across multiple nodes
// sharing one filesystem-less cache.
type S3MetadataStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3MetadataStore builds an S3MetadataStore. prefix is an optional key
// prefix so multiple deployments can share one bucket.
func NewS3MetadataStore(client *s3.Client, bucket, prefix string) *S3MetadataStore {
	return &S3MetadataStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3MetadataStore) key() string {
	if s.prefix == "" {
		return "index_metadata.json"
	}
	return s.prefix + "/index_metadata.json"
}

// Load fetches the metadata object, returning an empty Metadata if it does
// not exist yet.
func (s *S3MetadataStore) Load() (*Metadata, error) {
	ctx := context.Background()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key()),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return NewMetadata(), nil
		}
		return nil, fmt.Errorf("s3 get index metadata: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read index metadata body: %w", err)
	}
	var wire wireMetadata
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("parse index metadata: %w", err)
	}
	return wire.toMetadata(), nil
}

// Save writes the metadata object.
func (s *S3MetadataStore) Save(m *Metadata) error {
	ctx := context.Background()
	b, err := json.MarshalIndent(fromMetadata(m), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key()),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put index metadata: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}
