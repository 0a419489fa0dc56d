package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"pybun/internal/pkgver"
)

// HTTPDoer is the client's HTTP transport seam, so tests substitute a fake
// Do instead of a live http.Client. The metadata(name) -> PackageMetadata
// seam spec.md §9 requires is resolver.Source, which *Client satisfies.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches and caches per-package metadata from a PyPI-shaped index.
// It coalesces concurrent identical fetches with singleflight and keeps a
// badger-backed revalidation token per package name.
type Client struct {
	BaseURL string
	HTTP    HTTPDoer
	Store   *Store
	Offline bool
	Retry   retryConfig

	flight singleflight.Group

	mu    sync.Mutex
	cache map[string]PackageMetadata
}

// NewClient builds a Client. store may be nil only when offline is false
// and the caller accepts that every process restart re-fetches everything.
func NewClient(baseURL string, httpClient HTTPDoer, store *Store, offline bool) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    httpClient,
		Store:   store,
		Offline: offline,
		Retry:   defaultRetryConfig(),
		cache:   make(map[string]PackageMetadata),
	}
}

// Metadata returns name's full version set and per-version requirement
// lists, fetching lazily and coalescing concurrent callers for the same
// name (spec.md §4.1).
func (c *Client) Metadata(ctx context.Context, name string) (PackageMetadata, error) {
	name = pkgver.NormalizeName(name)

	c.mu.Lock()
	if md, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return md, nil
	}
	c.mu.Unlock()

	result, err, _ := c.flight.Do(name, func() (interface{}, error) {
		return c.fetchVersionIndex(ctx, name)
	})
	if err != nil {
		return PackageMetadata{}, err
	}
	md := result.(PackageMetadata)

	c.mu.Lock()
	c.cache[name] = md
	c.mu.Unlock()
	return md, nil
}

// VersionDetail lazily fetches the per-version requirement and
// distribution list for name@version. Callers (the resolver) must only
// call this for versions they actually consider, never the full set.
func (c *Client) VersionDetail(ctx context.Context, name, version string) (VersionMetadata, error) {
	name = pkgver.NormalizeName(name)
	key := name + "@" + version

	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.fetchVersionDetail(ctx, name, version)
	})
	if err != nil {
		return VersionMetadata{}, err
	}
	return result.(VersionMetadata), nil
}

func (c *Client) fetchVersionIndex(ctx context.Context, name string) (PackageMetadata, error) {
	var record revalidationRecord
	var hadCached bool
	if c.Store != nil {
		rec, ok, err := c.Store.Get(name)
		if err == nil && ok {
			record, hadCached = rec, true
		}
	}

	if c.Offline {
		if !hadCached {
			return PackageMetadata{}, errOffline(name)
		}
		return c.parseVersionIndex(name, record.Raw)
	}

	raw, fresh, newRecord, err := c.revalidatingGet(ctx, c.indexURL(name), record, hadCached)
	if err != nil {
		if hadCached {
			// Persistent network failure with a cached copy available still
			// beats failing the whole command outright.
			return c.parseVersionIndex(name, record.Raw)
		}
		return PackageMetadata{}, err
	}
	if !fresh {
		raw = record.Raw
	} else if c.Store != nil {
		_ = c.Store.Put(name, newRecord)
	}

	return c.parseVersionIndex(name, raw)
}

func (c *Client) fetchVersionDetail(ctx context.Context, name, version string) (VersionMetadata, error) {
	if c.Offline {
		return VersionMetadata{}, errOffline(name)
	}

	var body []byte
	err := retry(ctx, c.Retry, func(ctx context.Context, attempt int) (bool, error) {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, c.detailURL(name, version), nil)
		if rerr != nil {
			return false, rerr
		}
		resp, rerr := c.HTTP.Do(req)
		if rerr != nil {
			return true, rerr
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return true, fmt.Errorf("index returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("index returned status %d", resp.StatusCode)
		}
		data, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return true, rerr
		}
		body = data
		return false, nil
	})
	if err != nil {
		return VersionMetadata{}, errNetwork(name+"@"+version, err)
	}

	var doc versionDetailDoc
	if jerr := json.Unmarshal(body, &doc); jerr != nil {
		return VersionMetadata{}, errMalformed(name+"@"+version, jerr)
	}
	return VersionMetadata{
		Requires:      doc.Requires,
		Distributions: doc.Distributions,
		Yanked:        doc.Yanked,
		Hash:          doc.Hash,
		Signature:     doc.Signature,
	}, nil
}

// revalidatingGet performs a conditional GET using the cached record's
// ETag/Last-Modified tokens (if any), returning fresh=false when the
// server reports the cached copy is still good (a 304-equivalent).
func (c *Client) revalidatingGet(ctx context.Context, reqURL string, cached revalidationRecord, hadCached bool) (raw []byte, fresh bool, record revalidationRecord, err error) {
	err = retry(ctx, c.Retry, func(ctx context.Context, attempt int) (bool, error) {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if rerr != nil {
			return false, rerr
		}
		if hadCached {
			if cached.ETag != "" {
				req.Header.Set("If-None-Match", cached.ETag)
			}
			if cached.LastModified != "" {
				req.Header.Set("If-Modified-Since", cached.LastModified)
			}
		}

		resp, rerr := c.HTTP.Do(req)
		if rerr != nil {
			return true, rerr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			fresh = false
			return false, nil
		}
		if resp.StatusCode >= 500 {
			return true, fmt.Errorf("index returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("index returned status %d", resp.StatusCode)
		}

		data, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return true, rerr
		}
		raw = data
		fresh = true
		record = revalidationRecord{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Raw:          data,
		}
		return false, nil
	})
	if err != nil {
		return nil, false, revalidationRecord{}, errNetwork(reqURL, err)
	}
	return raw, fresh, record, nil
}

func (c *Client) parseVersionIndex(name string, raw []byte) (PackageMetadata, error) {
	var doc versionIndexDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return PackageMetadata{}, errMalformed(name, err)
	}
	md := PackageMetadata{Name: name, Versions: make(map[string]VersionMetadata, len(doc.Versions))}
	for _, v := range doc.Versions {
		md.Versions[v] = VersionMetadata{}
	}
	return md, nil
}

func (c *Client) indexURL(name string) string {
	return c.BaseURL + "/" + url.PathEscape(name) + "/"
}

func (c *Client) detailURL(name, version string) string {
	return c.BaseURL + "/" + url.PathEscape(name) + "/" + url.PathEscape(version) + "/"
}
