package onboarding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocStoreConfig configures the S3-compatible store for uploaded onboarding
// documents.
type DocStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// DocStore keeps uploaded source documents in an S3-compatible bucket,
// keyed by run so a regeneration can re-read the same sources.
type DocStore struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewDocStore(cfg DocStoreConfig) (*DocStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("docstore endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("docstore access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("docstore bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init docstore client: %w", err)
	}

	return &DocStore{client: client, bucketName: bucket, region: region}, nil
}

func (s *DocStore) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("docstore is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func objectKey(runID, name string) string {
	return runID + "/" + strings.TrimPrefix(name, "/")
}

// Put stores one document under the run.
func (s *DocStore) Put(ctx context.Context, runID string, doc Document) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("document name is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey(runID, doc.Name),
		bytes.NewReader(doc.Content), int64(len(doc.Content)),
		minio.PutObjectOptions{ContentType: doc.MimeType})
	if err != nil {
		return fmt.Errorf("put %s: %w", doc.Name, err)
	}
	return nil
}

// Get reads one document back.
func (s *DocStore) Get(ctx context.Context, runID, name string) (Document, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Document{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey(runID, name), minio.GetObjectOptions{})
	if err != nil {
		return Document{}, fmt.Errorf("get %s: %w", name, err)
	}
	defer obj.Close()
	content, err := io.ReadAll(obj)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	stat, err := obj.Stat()
	mime := ""
	if err == nil {
		mime = stat.ContentType
	}
	return Document{Name: name, MimeType: mime, Content: content}, nil
}

// List returns the document names stored for a run.
func (s *DocStore) List(ctx context.Context, runID string) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	prefix := runID + "/"
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	return names, nil
}
