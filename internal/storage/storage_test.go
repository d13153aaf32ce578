package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "owner/file.png", want: "owner/file.png"},
		{in: "/owner//file.png", want: "owner/file.png"},
		{in: `owner\file.png`, want: "owner/file.png"},
		{in: "../etc/passwd", wantErr: true},
		{in: "owner/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFileStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	url, err := store.Upload(context.Background(), "00000000-0000-0000-0000-000000000001", []byte("png"), "scene.png", "image/png")
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if url != "http://localhost:8080/static/00000000-0000-0000-0000-000000000001/scene.png" {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "00000000-0000-0000-0000-000000000001", "scene.png"))
	if err != nil || string(data) != "png" {
		t.Fatalf("stored = %q, %v", data, err)
	}

	key, ok := store.KeyForURL(url)
	if !ok {
		t.Fatalf("KeyForURL(%q) not recognized", url)
	}
	got, err := store.Read(context.Background(), key)
	if err != nil || string(got) != "png" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	if _, err := store.Read(context.Background(), "missing.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Read missing error = %v, want ErrNotFound", err)
	}
}

type fakeObjects struct {
	bucket, path string
	body         []byte
	opts         storage_go.FileOptions
	err          error
}

func (f *fakeObjects) UploadFile(bucketID, relativePath string, data io.Reader, opts ...storage_go.FileOptions) (storage_go.FileUploadResponse, error) {
	f.bucket, f.path = bucketID, relativePath
	f.body, _ = io.ReadAll(data)
	if len(opts) > 0 {
		f.opts = opts[0]
	}
	return storage_go.FileUploadResponse{}, f.err
}

func (f *fakeObjects) GetPublicUrl(bucketID, filePath string, opts ...storage_go.UrlOptions) storage_go.SignedUrlResponse {
	return storage_go.SignedUrlResponse{SignedURL: "https://proj.supabase.co/storage/v1/object/public/" + bucketID + "/" + filePath + "?"}
}

func TestSupabaseStoreUpload(t *testing.T) {
	objects := &fakeObjects{}
	store := newSupabaseStore(objects, "")

	url, err := store.Upload(context.Background(), "owner", []byte("ID3 audio"), "n.mp3", "")
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if url != "https://proj.supabase.co/storage/v1/object/public/character-images/owner/n.mp3" {
		t.Fatalf("url = %q", url)
	}
	if objects.path != "owner/n.mp3" || !bytes.Equal(objects.body, []byte("ID3 audio")) {
		t.Fatalf("uploaded %q = %q", objects.path, objects.body)
	}
	if objects.opts.ContentType == nil || *objects.opts.ContentType != "audio/mpeg" {
		t.Fatalf("content type = %v, want audio/mpeg", objects.opts.ContentType)
	}
	if objects.opts.Upsert == nil || !*objects.opts.Upsert {
		t.Fatalf("upsert not requested")
	}

	objects.err = errors.New("bucket not found")
	if _, err := store.Upload(context.Background(), "owner", []byte("x"), "a.png", "image/png"); err == nil {
		t.Fatalf("Upload should surface client errors")
	}
}

func TestFilenames(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	id := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	combo := domain.Combination{PortraitID: domain.PortraitF2, BuildType: domain.BuildRanger}

	if got := SceneImageFilename(combo, now, id); got != "first_scene_f2_ranger_20250304_050607_1a2b3c4d.png" {
		t.Fatalf("SceneImageFilename = %q", got)
	}
	if got := NarrationFilename(now, id); got != "first_scene_narration_20250304_050607_1a2b3c4d.mp3" {
		t.Fatalf("NarrationFilename = %q", got)
	}
}

type stubLookup struct {
	url      string
	err      error
	calls    int
	deadline time.Time
}

func (s *stubLookup) BaseImageURL(ctx context.Context, combo domain.Combination) (string, error) {
	s.calls++
	s.deadline, _ = ctx.Deadline()
	return s.url, s.err
}

func TestPortraitFetcher(t *testing.T) {
	combo := domain.Combination{PortraitID: domain.PortraitM1, BuildType: domain.BuildWarrior}
	downloads := 0
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		downloads++
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/png"}},
			Body:       io.NopCloser(strings.NewReader("portrait")),
		}, nil
	})}

	lookup := &stubLookup{url: "https://cdn.example.com/m1_warrior.png"}
	fetcher := NewPortraitFetcher(lookup, []string{"cdn.example.com"}, time.Minute, client, nil)

	for i := 0; i < 2; i++ {
		data, mime, err := fetcher.Fetch(context.Background(), combo)
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if string(data) != "portrait" || mime != "image/png" {
			t.Fatalf("Fetch = %q, %q", data, mime)
		}
	}
	if downloads != 1 || lookup.calls != 1 {
		t.Fatalf("downloads = %d, lookups = %d; want cached second call", downloads, lookup.calls)
	}
}

func TestPortraitFetcherRejects(t *testing.T) {
	combo := domain.Combination{PortraitID: domain.PortraitM1, BuildType: domain.BuildMage}
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatalf("no download expected")
		return nil, nil
	})}

	fetcher := NewPortraitFetcher(&stubLookup{url: "https://evil.example.net/x.png"}, []string{"cdn.example.com"}, time.Minute, client, nil)
	if _, _, err := fetcher.Fetch(context.Background(), combo); err == nil || !strings.Contains(err.Error(), "not allowlisted") {
		t.Fatalf("Fetch error = %v, want allowlist rejection", err)
	}

	fetcher = NewPortraitFetcher(&stubLookup{}, nil, time.Minute, client, nil)
	data, _, err := fetcher.Fetch(context.Background(), combo)
	if err != nil || data != nil {
		t.Fatalf("Fetch without build image = %q, %v; want nil, nil", data, err)
	}

	fetcher = NewPortraitFetcher(&stubLookup{err: errors.New("db down")}, nil, time.Minute, client, nil)
	if _, _, err := fetcher.Fetch(context.Background(), combo); err == nil {
		t.Fatalf("Fetch should surface lookup errors")
	}
}

func TestPortraitFetcherBoundsLookup(t *testing.T) {
	combo := domain.Combination{PortraitID: domain.PortraitF1, BuildType: domain.BuildRogue}
	lookup := &stubLookup{}
	fetcher := NewPortraitFetcher(lookup, nil, time.Minute, nil, nil)

	start := time.Now()
	if _, _, err := fetcher.Fetch(context.Background(), combo); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if lookup.deadline.IsZero() {
		t.Fatalf("lookup ran without a deadline")
	}
	if limit := start.Add(infra.StoreTimeout + time.Second); lookup.deadline.After(limit) {
		t.Fatalf("lookup deadline = %v, want within %v", lookup.deadline, infra.StoreTimeout)
	}
}
