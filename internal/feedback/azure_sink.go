package feedback

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// blobUploader is the part of *azblob.Client the sink needs.
type blobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureBlobSink mirrors compressed backgrounds into a blob container.
type AzureBlobSink struct {
	client    blobUploader
	container string
}

// NewAzureBlobSink creates a sink writing into container.
func NewAzureBlobSink(client *azblob.Client, container string) *AzureBlobSink {
	return &AzureBlobSink{client: client, container: container}
}

// Upload implements BlobSink.
func (s *AzureBlobSink) Upload(ctx context.Context, name string, data []byte) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.container, name, err)
	}
	return nil
}
