// Package azure stores objects as block blobs in one Azure Blob Storage
// container, authenticated with the account shared key.
package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/pkg/checksum"
)

func init() {
	storage.Register("azure", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Azure)
	})
}

// AzureStorage implements storage.Storage for Azure Blob Storage
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

// New creates an Azure backend for the configured container
func New(cfg *config.AzureStorageConfig) (*AzureStorage, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &AzureStorage{client: client, containerName: cfg.ContainerName}, nil
}

func (s *AzureStorage) container() *container.Client {
	return s.client.ServiceClient().NewContainerClient(s.containerName)
}

// Put uploads a block blob with its SHA-256 in blob metadata
func (s *AzureStorage) Put(ctx context.Context, key string, reader io.Reader, size int64) (*storage.PutResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	sum := checksum.Sum(data)

	_, err = s.container().NewBlockBlobClient(key).Upload(ctx,
		streaming.NopCloser(bytes.NewReader(data)),
		&blockblob.UploadOptions{Metadata: map[string]*string{"sha256": &sum}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}

	return &storage.PutResult{
		Key:      key,
		Size:     int64(len(data)),
		Checksum: sum,
	}, nil
}

// Get streams the blob
func (s *AzureStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.container().NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}
	return resp.Body, nil
}

// Exists fetches the blob properties
func (s *AzureStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.container().NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get blob properties: %w", err)
	}
	return true, nil
}
