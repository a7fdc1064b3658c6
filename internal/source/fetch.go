package source

import (
	"archive/zip"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gridscope/equimap-cli/internal/resilience"
)

// FetchOptions configures remote downloads.
type FetchOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  rate.Limit // requests per second
}

// Fetcher downloads remote datasets over HTTP(S) and FTP with retry
// and rate limiting.
type Fetcher struct {
	client  *http.Client
	opts    FetchOptions
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher with the given options.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "equimap/1.0"
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 10
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:    opts,
		limiter: rate.NewLimiter(opts.RateLimit, max(1, int(opts.RateLimit))),
	}
}

// Fetch downloads the URL into cacheDir and returns a local path ready
// for loading. ZIP archives are extracted and searched for the first
// recognized dataset file. Previously downloaded files are reused.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, cacheDir string) (string, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", eris.Wrapf(ErrDataLoad, "source: resolve cache dir: %v", err)
		}
		cacheDir = filepath.Join(base, "equimap")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", eris.Wrapf(ErrDataLoad, "source: create cache dir: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(ErrDataLoad, "source: parse url %s: %v", rawURL, err)
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Wrapf(ErrDataLoad, "source: url %s names no file", rawURL)
	}
	dest := filepath.Join(cacheDir, name)

	log := zap.L().With(
		zap.String("component", "source.fetch"),
		zap.String("url", rawURL),
	)

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		log.Debug("download already cached", zap.String("path", dest))
	} else {
		log.Info("downloading dataset")
		var ferr error
		if u.Scheme == "ftp" {
			ferr = f.fetchFTP(ctx, u, dest)
		} else {
			_, ferr = f.DownloadToFile(ctx, rawURL, dest)
		}
		if ferr != nil {
			_ = os.Remove(dest)
			return "", eris.Wrapf(ErrDataLoad, "source: fetch %s: %v", rawURL, ferr)
		}
	}

	if strings.EqualFold(filepath.Ext(dest), ".zip") {
		return extractDataset(dest)
	}
	return dest, nil
}

// Download fetches the URL and returns the response body.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to path.
func (f *Fetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}

// doWithRetry issues the request under the retry policy. Responses with
// non-retryable statuses come back as-is for the caller to judge.
func (f *Fetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	policy := resilience.Policy{
		MaxAttempts: f.opts.MaxRetries,
		OnRetry: func(attempt int, err error) {
			zap.L().Warn("download failed, retrying",
				zap.String("component", "source.fetch"),
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	}

	resp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resilience.RetryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.Transient(
				eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String()),
				resp.StatusCode,
			)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "all retries exhausted")
	}
	return resp, nil
}

// fetchFTP retrieves a file over FTP, anonymously unless the URL
// carries credentials.
func (f *Fetcher) fetchFTP(ctx context.Context, u *url.URL, dest string) error {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(f.opts.Timeout))
	if err != nil {
		return eris.Wrapf(err, "dial %s", addr)
	}
	defer func() { _ = conn.Quit() }()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return eris.Wrap(err, "login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return eris.Wrapf(err, "retrieve %s", u.Path)
	}
	defer resp.Close() //nolint:errcheck

	file, err := os.Create(dest)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, resp); err != nil {
		return eris.Wrap(err, "write file")
	}
	return nil
}

// extractDataset unpacks a downloaded archive next to itself and
// returns the first dataset file found inside.
func extractDataset(zipPath string) (string, error) {
	extractDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrapf(ErrDataLoad, "source: create extract dir: %v", err)
	}
	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrapf(ErrDataLoad, "source: extract %s: %v", zipPath, err)
	}

	for _, ext := range []string{".shp", ".geojson", ".json", ".gpkg"} {
		if p, err := findFileByExt(extractDir, ext); err == nil {
			return p, nil
		}
	}
	return "", eris.Wrapf(ErrDataLoad, "source: no dataset file in %s", zipPath)
}

// extractZIP extracts an archive to destDir, flattening entry paths.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		out, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = out.Close()
		_ = rc.Close()
	}
	return nil
}

// findFileByExt finds the first file with the given extension in dir.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
