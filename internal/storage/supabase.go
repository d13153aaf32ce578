package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"

	"scenegen/internal/domain"
)

// objectClient is the subset of the storage-go client the store calls.
type objectClient interface {
	UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// SupabaseStore uploads blobs into a public Supabase Storage bucket.
type SupabaseStore struct {
	client objectClient
	bucket string
	// storage-go keeps upload options in shared client headers.
	mu sync.Mutex
}

// NewSupabaseStore uses the storage client of an existing Supabase client.
func NewSupabaseStore(client *supabase.Client, bucket string) (*SupabaseStore, error) {
	if client == nil || client.Storage == nil {
		return nil, errors.New("storage: supabase client is required")
	}
	return newSupabaseStore(client.Storage, bucket), nil
}

func newSupabaseStore(client objectClient, bucket string) *SupabaseStore {
	if strings.TrimSpace(bucket) == "" {
		bucket = "character-images"
	}
	return &SupabaseStore{client: client, bucket: bucket}
}

// Upload implements domain.BlobStore with upsert semantics.
func (s *SupabaseStore) Upload(ctx context.Context, ownerKey string, data []byte, filename, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := sanitizeKey(path.Join(ownerKey, filename))
	if err != nil {
		return "", err
	}
	contentType = sniff(data, contentType)
	upsert := true

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("storage: supabase upload %s: %w", key, err)
	}
	url := strings.TrimSuffix(s.client.GetPublicUrl(s.bucket, key).SignedURL, "?")
	if url == "" {
		return "", fmt.Errorf("storage: supabase returned no public url for %s", key)
	}
	return url, nil
}

var _ domain.BlobStore = (*SupabaseStore)(nil)
