// Package s3 stores each user's snapshot as a JSON object in an
// S3-compatible bucket (AWS S3 or MinIO).
package s3

import (
	"budgetcore/pkg/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultPrefix     = "users"
	objectName        = "snapshot.json"
	updatedAtMetadata = "updated-at"
)

// Store implements domain.RemoteStore on a single bucket. The object for a
// user lives at <prefix>/<userID>/snapshot.json.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds construction parameters, usually resolved by the config
// package from BUDGETCORE_S3_* variables.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string // optional; enables a custom endpoint (e.g. MinIO)
	PathStyle bool
}

// New creates an S3 remote store from Config. Credentials come from the
// default AWS chain (AWS_ACCESS_KEY_ID and friends).
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client *s3.Client, bucket, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key holding userID's snapshot.
func (s *Store) Key(userID string) string {
	return path.Join(s.prefix, userID, objectName)
}

// Fetch downloads the user's snapshot. A missing object is reported as
// found=false.
func (s *Store) Fetch(ctx context.Context, userID string) (domain.RemoteDocument, bool, error) {
	key := s.Key(userID)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return domain.RemoteDocument{}, false, nil
		}
		return domain.RemoteDocument{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("read %s: %w", key, err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	doc := domain.RemoteDocument{Data: snapshot, UpdatedAt: aws.ToTime(out.LastModified)}
	if raw, ok := out.Metadata[updatedAtMetadata]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			doc.UpdatedAt = ts
		}
	}
	return doc, true, nil
}

// Upsert overwrites the user's snapshot object.
func (s *Store) Upsert(ctx context.Context, userID string, doc domain.RemoteDocument) error {
	payload, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := s.Key(userID)
	contentType := "application/json"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
		Metadata:    map[string]string{updatedAtMetadata: doc.UpdatedAt.UTC().Format(time.RFC3339Nano)},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
