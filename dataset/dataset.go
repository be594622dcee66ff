// Package dataset loads tabular datasets, either built-in sources by id or
// arbitrary CSV files by URL, into frames.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/xaibench/frame"
	"github.com/YuminosukeSato/xaibench/pkg/errors"
	"github.com/YuminosukeSato/xaibench/pkg/log"
)

// Dataset is a loaded table together with where it came from.
type Dataset struct {
	ID    ID
	Name  string
	URL   string
	Frame *frame.Frame
}

// Message is the text shown to the user after a successful load.
func (d *Dataset) Message() string {
	return fmt.Sprintf("Dataset '%s (%s)' loaded successfully. For further information about this dataset please visit: %s",
		d.ID, d.Name, d.URL)
}

// Loader fetches and parses datasets.
type Loader struct {
	client   *http.Client
	cacheDir string
	logger   log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithCacheDir stores downloads under dir and reuses them on later loads.
func WithCacheDir(dir string) Option {
	return func(l *Loader) { l.cacheDir = dir }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: log.GetLoggerWithName("dataset"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches a built-in dataset by id. It returns the dataset and the
// message for the user.
func (l *Loader) Load(ctx context.Context, id string) (*Dataset, string, error) {
	src, ok := Lookup(id)
	if !ok {
		return nil, "", errors.NewValidationError("dataset", "unknown built-in dataset", id)
	}
	return l.load(ctx, src)
}

// LoadURL fetches a CSV with a header row from url. url may also be a local
// file path.
func (l *Loader) LoadURL(ctx context.Context, name, url string) (*Dataset, string, error) {
	if name == "" {
		name = path.Base(url)
	}
	return l.load(ctx, Source{ID: Custom, Name: name, URL: url, NATokens: []string{"?", "NA"}})
}

func (l *Loader) load(ctx context.Context, src Source) (*Dataset, string, error) {
	logger := l.logger.With(log.DatasetKey, string(src.ID), log.DatasetURLKey, src.URL)

	data, err := l.fetch(ctx, src.URL)
	if err != nil {
		logger.Error("Dataset download failed", err)
		return nil, "", err
	}

	comma := src.Comma
	if comma == 0 {
		comma = sniffDelimiter(data)
	}
	f, err := frame.ReadCSV(bytes.NewReader(data), frame.CSVOptions{
		Columns:  src.Columns,
		NATokens: src.NATokens,
		Comma:    comma,
	})
	if err != nil {
		return nil, "", errors.Wrapf(err, "parse dataset %s", src.ID)
	}
	if f.Len() == 0 {
		return nil, "", errors.Wrapf(errors.ErrEmptyData, "dataset %s", src.ID)
	}

	ds := &Dataset{ID: src.ID, Name: src.Name, URL: src.URL, Frame: f}
	msg := ds.Message()
	logger.Info(msg, log.SamplesKey, f.Len(), log.ColumnsKey, f.Width())
	logger.Debug("Dataset head\n" + f.Head(5).String())
	return ds, msg, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
		return data, errors.Wrapf(err, "read %s", url)
	}

	var cachePath string
	if l.cacheDir != "" {
		sum := sha1.Sum([]byte(url))
		cachePath = filepath.Join(l.cacheDir, hex.EncodeToString(sum[:8])+"-"+path.Base(url))
		if data, err := os.ReadFile(cachePath); err == nil {
			l.logger.Debug("Dataset served from cache", "path", cachePath)
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", url)
	}

	if cachePath != "" {
		if err := os.MkdirAll(l.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cachePath, data, 0o644); err != nil {
				l.logger.Warn("Dataset cache write failed", log.ErrAttrKey, err)
			}
		}
	}
	return data, nil
}

// sniffDelimiter picks ';' or '\t' over ',' when the first line uses it more.
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, bestCount := ',', strings.Count(line, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
