package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const azureBlobHostSuffix = ".blob.core.windows.net"

// NewAzureClient creates a shared-key blob client for the account.
func NewAzureClient(accountName string, accountKey string) (*azblob.Client, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, azureBlobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return client, nil
}

// blobDownloader is the part of *azblob.Client the fetcher needs.
type blobDownloader interface {
	DownloadStream(ctx context.Context, containerName string, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// AzureBlobFetcher reads images from the configured storage account.
type AzureBlobFetcher struct {
	client   blobDownloader
	maxBytes int64
}

// NewAzureBlobFetcher wraps a blob client.
func NewAzureBlobFetcher(client *azblob.Client, maxBytes int64) *AzureBlobFetcher {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &AzureBlobFetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads https://<account>.blob.core.windows.net/<container>/<blob>.
// The legacy form /<container>?blob=<name> is also accepted.
func (s *AzureBlobFetcher) Fetch(ctx context.Context, blobURL string) (*FetchedImage, error) {
	containerName, blobName, err := parseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.Body
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}

	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return &FetchedImage{Data: data, ContentType: contentType, Name: nameFromPath(blobName)}, nil
}

func parseBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	containerName, blobName, _ := strings.Cut(strings.TrimPrefix(parsedURL.Path, "/"), "/")
	if blobName == "" {
		blobName = parsedURL.Query().Get("blob")
	}
	if containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: missing container or blob name in %q", blobURL)
	}
	return containerName, blobName, nil
}

// IsAzureBlobURL reports whether u points at an Azure blob endpoint.
func IsAzureBlobURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Hostname()), azureBlobHostSuffix)
}

// RoutingFetcher sends blob URLs to the blob fetcher and everything else over HTTP.
type RoutingFetcher struct {
	HTTP ImageFetcher
	Blob ImageFetcher
}

// Fetch implements ImageFetcher.
func (r *RoutingFetcher) Fetch(ctx context.Context, imageURL string) (*FetchedImage, error) {
	if r.Blob != nil && IsAzureBlobURL(imageURL) {
		return r.Blob.Fetch(ctx, imageURL)
	}
	return r.HTTP.Fetch(ctx, imageURL)
}
