package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore implements Store with one bucket per cache generation. Objects
// are keyed by a digest of the request URL; status and content type travel in
// object metadata.
type MinIOStore struct {
	client *minio.Client
	prefix string // bucket name prefix identifying cache generations
}

// MinIOConfig holds MinIO connection configuration.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	UseSSL    bool
}

// NewMinIOStore creates a MinIO-backed cache store.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	return &MinIOStore{client: client, prefix: cfg.Prefix}, nil
}

// Open ensures the generation's bucket exists.
func (s *MinIOStore) Open(ctx context.Context, generation string) error {
	exists, err := s.client.BucketExists(ctx, generation)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, generation, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("📦 Created cache generation bucket: %s", generation)
	}
	return nil
}

// Put stores the entry under the URL's digest.
func (s *MinIOStore) Put(ctx context.Context, generation, url string, e *Entry) error {
	_, err := s.client.PutObject(ctx, generation, objectKey(url), bytes.NewReader(e.Body), int64(len(e.Body)), minio.PutObjectOptions{
		ContentType: e.ContentType,
		UserMetadata: map[string]string{
			"Status":    strconv.Itoa(e.StatusCode),
			"Cache-Url": url,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to cache %s: %w", url, err)
	}
	return nil
}

// Get returns the cached entry for a URL, or nil on a miss.
func (s *MinIOStore) Get(ctx context.Context, generation, url string) (*Entry, error) {
	obj, err := s.client.GetObject(ctx, generation, objectKey(url), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached entry: %w", err)
	}

	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat cached entry: %w", err)
	}

	status := 200
	if v, err := strconv.Atoi(stat.UserMetadata["Status"]); err == nil {
		status = v
	}

	return &Entry{
		StatusCode:  status,
		ContentType: stat.ContentType,
		Body:        body,
	}, nil
}

// Generations lists the buckets carrying the cache prefix.
func (s *MinIOStore) Generations(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var out []string
	for _, b := range buckets {
		if strings.HasPrefix(b.Name, s.prefix) {
			out = append(out, b.Name)
		}
	}
	return out, nil
}

// Delete removes a generation bucket and all its objects.
func (s *MinIOStore) Delete(ctx context.Context, generation string) error {
	objects := s.client.ListObjects(ctx, generation, minio.ListObjectsOptions{Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects in %s: %w", generation, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, generation, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
	}
	if err := s.client.RemoveBucket(ctx, generation); err != nil {
		return fmt.Errorf("failed to remove bucket %s: %w", generation, err)
	}
	return nil
}

func objectKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
