package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/transport"
)

// azureBackend is the Gateway implementation backed by Azure Blob Storage.
// In this domain "bucket" names an Azure container. Grounded on the
// teacher's internal/cloud/providers/azure.AzureClient, trimmed the same
// way s3Backend trims S3Client: no cross-storage credential fetch, no
// concurrent block-blob transfer.
type azureBackend struct {
	client     *azblob.Client
	serviceURL string
	log        *logging.Logger
}

func newAzureBackend(ctx context.Context, cfg *config.Config) (*azureBackend, error) {
	if cfg.AzureStorageAccount == "" {
		return nil, fmt.Errorf("objectstore: AZURE_STORAGE_ACCOUNT is required for the azure provider")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AzureStorageAccount)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}

	return &azureBackend{client: client, serviceURL: serviceURL, log: logging.New("objectstore.azure")}, nil
}

func (b *azureBackend) GetBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.DownloadFile(ctx, bucket, key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *azureBackend) PutBytes(ctx context.Context, bucket, key string, data []byte) error {
	return b.UploadFile(ctx, bucket, key, bytes.NewReader(data), int64(len(data)))
}

func (b *azureBackend) Head(ctx context.Context, bucket, key string) (bool, int64, error) {
	var size int64
	err := transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		props, err := b.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(key).GetProperties(ctx, nil)
		if err != nil {
			return err
		}
		if props.ContentLength != nil {
			size = *props.ContentLength
		}
		return nil
	})
	if err == nil {
		return true, size, nil
	}
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.AuthorizationFailure, bloberror.InsufficientAccountPermissions) {
		return false, 0, nil
	}
	return false, 0, err
}

func (b *azureBackend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	srcURL := fmt.Sprintf("https://%s/%s/%s", trimScheme(b.client.URL()), srcBucket, srcKey)
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		_, err := b.client.ServiceClient().NewContainerClient(dstBucket).NewBlobClient(dstKey).
			StartCopyFromURL(ctx, srcURL, nil)
		return err
	})
}

func (b *azureBackend) DownloadFile(ctx context.Context, bucket, key string, w io.Writer) error {
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		resp, err := b.client.DownloadStream(ctx, bucket, key, nil)
		if err != nil {
			return err
		}
		body := resp.Body
		defer body.Close()
		_, err = io.Copy(w, body)
		return err
	})
}

func (b *azureBackend) UploadFile(ctx context.Context, bucket, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		_, err := b.client.UploadBuffer(ctx, bucket, key, data, nil)
		return err
	})
}

// PresignPut implements objectstore.Presigner (C9's URL issuer) using a
// user-delegation SAS, the Azure analogue of S3's presigned-URL flow: the
// service account itself holds no storage key, so the SAS is signed with a
// short-lived delegation credential obtained from Azure AD rather than a
// shared key. Grounded on the azblob SDK's documented
// GetUserDelegationCredential / BlobSignatureValues.SignWithUserDelegation
// pairing; no pack example wires Azure SAS issuance, so this follows the
// SDK's own idiom rather than a corpus file.
func (b *azureBackend) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	start := time.Now().UTC().Add(-5 * time.Minute)
	expiry := time.Now().UTC().Add(ttl)

	udc, err := b.client.ServiceClient().GetUserDelegationCredential(ctx, service.KeyInfo{
		Start:  to.Ptr(start.Format(sas.TimeFormat)),
		Expiry: to.Ptr(expiry.Format(sas.TimeFormat)),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("objectstore: requesting user delegation credential: %w", err)
	}

	perms := sas.BlobPermissions{Write: true, Create: true}
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     start,
		ExpiryTime:    expiry,
		Permissions:   perms.String(),
		ContainerName: bucket,
		BlobName:      key,
	}
	query, err := values.SignWithUserDelegation(udc)
	if err != nil {
		return "", fmt.Errorf("objectstore: signing SAS: %w", err)
	}

	return fmt.Sprintf("%s%s/%s?%s", b.serviceURL, bucket, key, query.Encode()), nil
}

func trimScheme(u string) string {
	return strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
}
