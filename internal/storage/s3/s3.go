// Package s3 stores objects in AWS S3 or an S3-compatible service (MinIO,
// DigitalOcean Spaces) reached through a custom endpoint. Credentials come from
// the default AWS chain, static keys, OIDC web identity or AssumeRole.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	appconfig "github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/pkg/checksum"
)

func init() {
	storage.Register("s3", func(cfg *appconfig.Config) (storage.Storage, error) {
		return New(&cfg.Storage.S3)
	})
}

// checksumMetaKey holds the SHA-256 of the object in user metadata
const checksumMetaKey = "sha256"

// S3Storage implements storage.Storage for S3-compatible services
type S3Storage struct {
	client *s3.Client
	bucket string
}

// New creates an S3 backend.
//
// Authentication methods:
//   - "default" or empty: AWS default credential chain (env, shared config, IAM role)
//   - "static": access_key_id and secret_access_key
//   - "oidc": web identity token file exchanged for role_arn
//   - "assume_role": role_arn, optionally with external_id
//
// An empty auth_method with both static keys set selects "static".
func New(cfg *appconfig.S3StorageConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	awsCfg, err := loadAWSConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

func authMethod(cfg *appconfig.S3StorageConfig) string {
	if cfg.AuthMethod != "" {
		return cfg.AuthMethod
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return "static"
	}
	return "default"
}

func loadAWSConfig(ctx context.Context, cfg *appconfig.S3StorageConfig) (aws.Config, error) {
	method := authMethod(cfg)
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	switch method {
	case "static":
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return aws.Config{}, fmt.Errorf("access_key_id and secret_access_key are required for static auth")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case "oidc":
		if cfg.RoleARN == "" {
			return aws.Config{}, fmt.Errorf("role_arn is required for OIDC auth")
		}
		if cfg.WebIdentityTokenFile == "" {
			return aws.Config{}, fmt.Errorf("web_identity_token_file is required for OIDC auth")
		}
	case "assume_role":
		if cfg.RoleARN == "" {
			return aws.Config{}, fmt.Errorf("role_arn is required for assume_role auth")
		}
	case "default":
	default:
		return aws.Config{}, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'static', 'oidc', or 'assume_role')", method)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Role-based providers need the base config for their STS client.
	switch method {
	case "oidc":
		provider := stscreds.NewWebIdentityRoleProvider(
			sts.NewFromConfig(awsCfg),
			cfg.RoleARN,
			stscreds.IdentityTokenFile(cfg.WebIdentityTokenFile),
			func(o *stscreds.WebIdentityRoleOptions) {
				if cfg.RoleSessionName != "" {
					o.RoleSessionName = cfg.RoleSessionName
				}
			},
		)
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	case "assume_role":
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsCfg), cfg.RoleARN,
			func(o *stscreds.AssumeRoleOptions) {
				if cfg.RoleSessionName != "" {
					o.RoleSessionName = cfg.RoleSessionName
				}
				if cfg.ExternalID != "" {
					o.ExternalID = aws.String(cfg.ExternalID)
				}
			},
		)
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	return awsCfg, nil
}

// Put uploads the object with its SHA-256 in user metadata. Registration
// archives are small, so the body is buffered to compute the checksum first.
func (s *S3Storage) Put(ctx context.Context, key string, reader io.Reader, size int64) (*storage.PutResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	sum := checksum.Sum(data)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{checksumMetaKey: sum},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &storage.PutResult{
		Key:      key,
		Size:     int64(len(data)),
		Checksum: sum,
	}, nil
}

// Get streams the object body
func (s *S3Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return result.Body, nil
}

// Exists issues a HEAD request for the key
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
