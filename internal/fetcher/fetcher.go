// Package fetcher refreshes the remote recipe catalogs.
//
// Sources come from remote_sources.json and are tried in order until one
// succeeds. Two kinds are understood: a direct recipe-map JSON document and
// a NotEnoughUpdates repository zip, which is converted into the crafting
// and forge catalogs. Downloads are conditional (ETag or file mtime) and
// written atomically; after a change the resolver is asked to reload.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/craftgraph/internal/catalog"
	"github.com/HendryAvila/craftgraph/internal/recipe"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "craftgraph"

	// maxDownload caps how much of a response body is read.
	maxDownload = 512 << 20
)

// Outcome is what a fetch run did.
type Outcome string

const (
	OutcomeUpdated     Outcome = "updated"
	OutcomeNotModified Outcome = "not_modified"
	OutcomeNoSources   Outcome = "no_sources"
	OutcomeFailed      Outcome = "failed"
)

// Result describes one fetch run.
type Result struct {
	Outcome       Outcome `json:"outcome"`
	Source        string  `json:"source,omitempty"`
	Type          string  `json:"type,omitempty"`
	Recipes       int     `json:"recipes"`
	ForgeRecipes  int     `json:"forge_recipes"`
	Error         string  `json:"error,omitempty"`
	ReloadError   string  `json:"reload_error,omitempty"`
	NotifyError   string  `json:"notify_error,omitempty"`
	ElapsedMillis int64   `json:"elapsed_ms"`
}

// Options configures a Fetcher. Layout is required.
type Options struct {
	Layout     catalog.Layout
	Meta       MetaStore
	Notifier   catalog.NameNotifier
	OnChange   func(ctx context.Context) error
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Fetcher downloads remote catalogs into the data directory.
type Fetcher struct {
	layout    catalog.Layout
	meta      MetaStore
	notifier  catalog.NameNotifier
	onChange  func(ctx context.Context) error
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a Fetcher, filling in defaults for unset options.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		layout:    opts.Layout,
		meta:      opts.Meta,
		notifier:  opts.Notifier,
		onChange:  opts.OnChange,
		client:    opts.HTTPClient,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
	if f.meta == nil {
		f.meta = NewFileMetaStore(opts.Layout.Path(catalog.SourcesMetaFile))
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Run tries the configured sources in order and stops at the first one that
// succeeds or reports no change. It returns an error only when every source
// failed or the configuration cannot be read.
func (f *Fetcher) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := f.run(ctx)
	res.ElapsedMillis = time.Since(start).Milliseconds()
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
	}
	return res, err
}

func (f *Fetcher) run(ctx context.Context) (Result, error) {
	cfg, err := f.layout.ReadSources()
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: %w", err)
	}

	var lastErr error
	tried := 0
	for _, src := range cfg.Sources {
		if strings.TrimSpace(src.URL) == "" {
			continue
		}
		var (
			res Result
			err error
		)
		switch strings.ToLower(strings.TrimSpace(src.Type)) {
		case "recipes", "json":
			res, err = f.fetchJSON(ctx, src.URL)
		case "neu-zip", "neu_zip", "neuzip":
			res, err = f.fetchNEU(ctx, src.URL)
		default:
			f.logger.Debug("skipping unknown source type", zap.String("type", src.Type))
			continue
		}
		tried++
		res.Source, res.Type = src.URL, src.Type
		if err != nil {
			lastErr = err
			f.logger.Warn("remote source failed", zap.String("url", src.URL), zap.Error(err))
			continue
		}
		f.logger.Info("remote source fetched",
			zap.String("url", src.URL),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("recipes", res.Recipes),
			zap.Int("forge_recipes", res.ForgeRecipes))
		return res, nil
	}

	if tried == 0 {
		return Result{Outcome: OutcomeNoSources}, nil
	}
	return Result{}, fmt.Errorf("fetcher: all %d sources failed: %w", tried, lastErr)
}

// RunAsync runs Run in a goroutine. Failures and panics are logged; the
// returned channel receives the result and is then closed.
func (f *Fetcher) RunAsync(ctx context.Context) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("remote fetch panicked", zap.Any("panic", r))
				done <- Result{Outcome: OutcomeFailed, Error: fmt.Sprintf("panic: %v", r)}
			}
		}()
		res, err := f.Run(ctx)
		if err != nil {
			f.logger.Warn("remote fetch failed", zap.Error(err))
		}
		done <- res
	}()
	return done
}

// ─── Direct JSON ─────────────────────────────────────────────────────────────

func (f *Fetcher) fetchJSON(ctx context.Context, rawURL string) (Result, error) {
	key := "etag::" + rawURL
	etag, err := f.meta.Get(ctx, key)
	if err != nil {
		f.logger.Warn("reading fetch validator", zap.String("key", key), zap.Error(err))
	}

	body, newETag, notModified, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return Result{}, err
	}
	if notModified {
		return Result{Outcome: OutcomeNotModified}, nil
	}

	m, err := catalog.ParseRecipeMap(body)
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: %s: %w", rawURL, err)
	}
	if m.Len() == 0 {
		return Result{}, fmt.Errorf("fetcher: %s: recipe document is empty", rawURL)
	}
	if err := catalog.WriteFileAtomic(f.layout.Path(catalog.RemoteFile), body); err != nil {
		return Result{}, fmt.Errorf("fetcher: %w", err)
	}

	res := Result{Outcome: OutcomeUpdated, Recipes: m.Len()}
	f.afterChange(ctx, &res, m)
	f.storeValidator(ctx, key, newETag)
	return res, nil
}

// ─── NEU repository zip ──────────────────────────────────────────────────────

func (f *Fetcher) fetchNEU(ctx context.Context, rawURL string) (Result, error) {
	var (
		data      []byte
		key, next string
	)

	if path, ok := localPath(rawURL); ok {
		abs, err := filepath.Abs(path)
		if err != nil {
			return Result{}, fmt.Errorf("fetcher: %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return Result{}, fmt.Errorf("fetcher: archive: %w", err)
		}
		key = "mtime::" + abs
		next = strconv.FormatInt(info.ModTime().UnixMilli(), 10)
		if prev, _ := f.meta.Get(ctx, key); prev != "" && prev == next {
			return Result{Outcome: OutcomeNotModified}, nil
		}
		if data, err = os.ReadFile(abs); err != nil {
			return Result{}, fmt.Errorf("fetcher: archive: %w", err)
		}
	} else {
		key = "etag::" + rawURL
		etag, err := f.meta.Get(ctx, key)
		if err != nil {
			f.logger.Warn("reading fetch validator", zap.String("key", key), zap.Error(err))
		}
		var notModified bool
		data, next, notModified, err = f.get(ctx, rawURL, etag)
		if err != nil {
			return Result{}, err
		}
		if notModified {
			return Result{Outcome: OutcomeNotModified}, nil
		}
	}

	crafting, forge, err := parseNEUArchive(data)
	if err != nil {
		return Result{}, fmt.Errorf("fetcher: %s: %w", rawURL, err)
	}
	if crafting.Len() == 0 && forge.Len() == 0 {
		return Result{}, fmt.Errorf("fetcher: %s: archive has no recipes", rawURL)
	}

	if crafting.Len() > 0 {
		if err := writeRecipeFile(f.layout.Path(catalog.RemoteFile), crafting); err != nil {
			return Result{}, err
		}
	}
	if forge.Len() > 0 {
		if err := writeRecipeFile(f.layout.Path(catalog.RemoteForgeFile), forge); err != nil {
			return Result{}, err
		}
	}

	res := Result{Outcome: OutcomeUpdated, Recipes: crafting.Len(), ForgeRecipes: forge.Len()}
	f.afterChange(ctx, &res, catalog.Merge(crafting, forge))
	f.storeValidator(ctx, key, next)
	return res, nil
}

// localPath reports whether rawURL names a file rather than an HTTP
// resource: a file:// URL or a plain path.
func localPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, true
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Host != "" && u.Host != "localhost" {
			return "//" + u.Host + u.Path, true
		}
		return u.Path, true
	case "http", "https":
		return "", false
	}
	return rawURL, true
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// get performs a conditional GET. notModified is true on 304.
func (f *Fetcher) get(ctx context.Context, rawURL, etag string) (body []byte, newETag string, notModified bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("fetcher: creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", false, fmt.Errorf("fetcher: GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return nil, "", true, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, "", false, fmt.Errorf("fetcher: GET %s returned %d", rawURL, resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, "", false, fmt.Errorf("fetcher: reading %s: %w", rawURL, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, "", false, fmt.Errorf("fetcher: %s returned an empty body", rawURL)
	}
	return body, resp.Header.Get("ETag"), false, nil
}

// afterChange reports the new names and triggers the reload callback. Both
// are best effort.
func (f *Fetcher) afterChange(ctx context.Context, res *Result, written *recipe.RecipeMap) {
	if f.notifier != nil {
		if err := f.notifier.EnsureNames(ctx, recipe.ReferencedNames(written)); err != nil {
			res.NotifyError = err.Error()
			f.logger.Warn("name notification failed", zap.Error(err))
		}
	}
	if f.onChange != nil {
		if err := f.onChange(ctx); err != nil {
			res.ReloadError = err.Error()
			f.logger.Warn("reload after fetch failed", zap.Error(err))
		}
	}
}

func (f *Fetcher) storeValidator(ctx context.Context, key, value string) {
	if value == "" {
		return
	}
	if err := f.meta.Set(ctx, key, value); err != nil {
		f.logger.Warn("storing fetch validator", zap.String("key", key), zap.Error(err))
	}
}

func writeRecipeFile(path string, m *recipe.RecipeMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("fetcher: encoding %s: %w", filepath.Base(path), err)
	}
	if err := catalog.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("fetcher: %w", err)
	}
	return nil
}
