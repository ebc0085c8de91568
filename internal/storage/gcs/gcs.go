// Package gcs stores objects in Google Cloud Storage. Credentials come from
// Application Default Credentials (including Workload Identity) or a service
// account key given as a file or inline JSON.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	appconfig "github.com/annotation-study/registration/internal/config"
	appstorage "github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/pkg/checksum"
)

func init() {
	appstorage.Register("gcs", func(cfg *appconfig.Config) (appstorage.Storage, error) {
		return New(&cfg.Storage.GCS)
	})
}

// GCSStorage implements storage.Storage for a single bucket
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// clientOptions maps the configured auth method to client options.
//
//   - "default" or empty: Application Default Credentials
//   - "service_account": credentials_json, else credentials_file
//   - "workload_identity": ADC as provided by the GKE metadata server
func clientOptions(cfg *appconfig.GCSStorageConfig) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	method := cfg.AuthMethod
	if method == "" {
		method = "default"
		if cfg.CredentialsFile != "" || cfg.CredentialsJSON != "" {
			method = "service_account"
		}
	}

	switch method {
	case "service_account":
		switch {
		case cfg.CredentialsJSON != "":
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		case cfg.CredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		default:
			return nil, fmt.Errorf("credentials_file or credentials_json is required for service_account auth")
		}
	case "workload_identity", "default":
	default:
		return nil, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'service_account', or 'workload_identity')", method)
	}
	return opts, nil
}

// New creates a GCS backend
func New(cfg *appconfig.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{client: client, bucket: cfg.Bucket}, nil
}

// Close releases the underlying client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Put uploads the object with its SHA-256 in object metadata
func (s *GCSStorage) Put(ctx context.Context, key string, reader io.Reader, size int64) (*appstorage.PutResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	sum := checksum.Sum(data)

	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.Metadata = map[string]string{"sha256": sum}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return &appstorage.PutResult{
		Key:      key,
		Size:     int64(len(data)),
		Checksum: sum,
	}, nil
}

// Get opens a reader on the object
func (s *GCSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", appstorage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}
	return reader, nil
}

// Exists fetches the object attributes
func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}
