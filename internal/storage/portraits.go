package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

const (
	maxPortraitBytes     = 10 << 20
	portraitCacheCleanup = time.Hour
)

type cachedPortrait struct {
	data []byte
	mime string
}

// PortraitFetcher downloads base build portraits located through a
// BaseImageLookup. Downloads are limited to allowlisted hosts and cached by
// combination.
type PortraitFetcher struct {
	lookup     domain.BaseImageLookup
	httpClient *http.Client
	allowlist  []string
	cache      *cache.Cache
	logger     *infra.Logger
}

// NewPortraitFetcher builds a fetcher. An empty allowlist accepts any host.
func NewPortraitFetcher(lookup domain.BaseImageLookup, allowlist []string, ttl time.Duration, httpClient *http.Client, logger *infra.Logger) *PortraitFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: infra.DownloadTimeout}
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PortraitFetcher{
		lookup:     lookup,
		httpClient: httpClient,
		allowlist:  allowlist,
		cache:      cache.New(ttl, portraitCacheCleanup),
		logger:     logger,
	}
}

// Fetch implements domain.BaseImageSource. A combination without a stored
// build portrait yields nil bytes and no error.
func (f *PortraitFetcher) Fetch(ctx context.Context, combo domain.Combination) ([]byte, string, error) {
	if hit, ok := f.cache.Get(combo.Key()); ok {
		p := hit.(cachedPortrait)
		return p.data, p.mime, nil
	}

	raw, err := f.locate(ctx, combo)
	if err != nil {
		return nil, "", fmt.Errorf("storage: locate portrait %s: %w", combo, err)
	}
	if raw == "" {
		f.logger.Warn().Str("combination", combo.Key()).Msg("storage: no character build image")
		return nil, "", nil
	}
	if err := f.checkHost(raw); err != nil {
		return nil, "", err
	}

	data, mime, err := f.download(ctx, raw)
	if err != nil {
		return nil, "", err
	}
	f.cache.SetDefault(combo.Key(), cachedPortrait{data: data, mime: mime})
	return data, mime, nil
}

func (f *PortraitFetcher) locate(ctx context.Context, combo domain.Combination) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, infra.StoreTimeout)
	defer cancel()
	return f.lookup.BaseImageURL(ctx, combo)
}

func (f *PortraitFetcher) checkHost(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("storage: invalid portrait url %q", raw)
	}
	if len(f.allowlist) == 0 || slices.Contains(f.allowlist, strings.ToLower(u.Hostname())) {
		return nil
	}
	return fmt.Errorf("storage: portrait host %q is not allowlisted", u.Hostname())
}

func (f *PortraitFetcher) download(ctx context.Context, raw string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, infra.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, "", fmt.Errorf("storage: create download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("storage: download portrait: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("storage: download portrait status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPortraitBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("storage: read portrait: %w", err)
	}
	if len(data) > maxPortraitBytes {
		return nil, "", fmt.Errorf("storage: portrait exceeds %d bytes", maxPortraitBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

var _ domain.BaseImageSource = (*PortraitFetcher)(nil)
