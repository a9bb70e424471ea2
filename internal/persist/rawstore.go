package persist

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// =============================================================================
// RAW PAYLOAD STORE
// Payloads land on local disk under a source-partitioned path. An optional
// object-store sink mirrors every write for durability.
// =============================================================================

// PayloadSink mirrors raw payloads into secondary storage.
type PayloadSink interface {
	Put(ctx context.Context, source, hash string, payload []byte) error
}

// RawStore writes raw payloads to <root>/raw/<source>/<hash>.json.
type RawStore struct {
	root   string
	sink   PayloadSink
	logger *zap.Logger
}

// NewRawStore creates a raw payload store rooted at dataRoot. A nil logger
// falls back to a no-op logger.
func NewRawStore(dataRoot string, sink PayloadSink, logger *zap.Logger) *RawStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RawStore{root: dataRoot, sink: sink, logger: logger}
}

// Write stores one payload and returns its file path. The disk copy is
// authoritative; sink trouble is logged, never returned.
func (s *RawStore) Write(ctx context.Context, source, hash string, payload []byte) (string, error) {
	dir := filepath.Join(s.root, "raw", source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	path := filepath.Join(dir, hash+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write raw payload: %w", err)
	}

	if s.sink != nil {
		if err := s.sink.Put(ctx, source, hash, payload); err != nil {
			s.logger.Warn("object sink write failed",
				zap.String("source", source), zap.String("hash", hash), zap.Error(err))
		}
	}
	return path, nil
}

// Read loads one payload back.
func (s *RawStore) Read(source, hash string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, "raw", source, hash+".json"))
}

// =============================================================================
// OBJECT SINK
// =============================================================================

// ObjectSinkConfig configures the optional object-store mirror.
type ObjectSinkConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectSink mirrors raw payloads into an S3-compatible bucket.
type ObjectSink struct {
	client *minio.Client
	bucket string
}

// NewObjectSink connects to the object store and ensures the bucket exists.
func NewObjectSink(ctx context.Context, cfg ObjectSinkConfig) (*ObjectSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &ObjectSink{client: client, bucket: cfg.Bucket}, nil
}

// Put writes one payload under raw/<source>/<hash>.json.
func (s *ObjectSink) Put(ctx context.Context, source, hash string, payload []byte) error {
	key := fmt.Sprintf("raw/%s/%s.json", source, hash)
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}
