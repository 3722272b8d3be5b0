package downloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/render"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageFetchError is never fatal: the caller drops the image and moves on.
type ImageFetchError struct {
	URL  string
	Name string
	Err  error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("image %s (%s): %v", e.Name, e.URL, e.Err)
}

func (e *ImageFetchError) Unwrap() error {
	return e.Err
}

// Counter receives the size of every saved image.
type Counter interface {
	AddImage(bytes int64)
}

type Downloader struct {
	fetcher   Fetcher
	outputDir string
	counter   Counter
	log       logrus.FieldLogger
}

func New(f Fetcher, outputDir string, counter Counter, log logrus.FieldLogger) *Downloader {
	return &Downloader{
		fetcher:   f,
		outputDir: outputDir,
		counter:   counter,
		log:       log,
	}
}

func ImageName(chapter, n int) string {
	return fmt.Sprintf("chapter_%d_image_%d.jpg", chapter, n)
}

// Save fetches url and writes it to name inside the output directory,
// returning the local path.
func (d *Downloader) Save(ctx context.Context, url, name string) (string, error) {
	data, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", &ImageFetchError{URL: url, Name: name, Err: err}
	}

	if mt := http.DetectContentType(data); !strings.HasPrefix(mt, "image/") {
		return "", &ImageFetchError{URL: url, Name: name, Err: fmt.Errorf("unexpected MIME: %s", mt)}
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return "", &ImageFetchError{URL: url, Name: name, Err: err}
	}

	path := filepath.Join(d.outputDir, name)
	if err := writeFile(path, data); err != nil {
		return "", &ImageFetchError{URL: url, Name: name, Err: err}
	}

	if d.counter != nil {
		d.counter.AddImage(int64(len(data)))
	}
	if d.log != nil {
		d.log.WithFields(logrus.Fields{"image": name, "bytes": len(data)}).Debug("image saved")
	}

	return path, nil
}

// writeFile writes through a temp file so an interrupted run never leaves
// a truncated image under its final name.
func writeFile(path string, data []byte) error {
	tmp := path + render.TempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	n, err := f.Write(data)
	if err == nil && n < len(data) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}
