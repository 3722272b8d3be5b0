// Package render turns an assembled story.Document into output files.
// Renderers are stateless and never touch the network: every image they
// reference has already been saved next to the outputs.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/story"
)

// ErrResourceMissing marks an image referenced by the document that is not on disk.
var ErrResourceMissing = errors.New("referenced resource missing")

// TempSuffix marks partially written outputs.
const TempSuffix = ".tmp"

type Renderer interface {
	Render(doc story.Document, w io.Writer) error
	// Extension returns the output file extension, e.g. ".md".
	Extension() string
}

// Options configures the renderers that need more than the document.
type Options struct {
	FontPath string
	Log      logrus.FieldLogger
}

var AllFormats = []string{"md", "txt", "pdf", "epub"}

// ByName builds renderers for the given format names in the given order.
func ByName(formats []string, opts Options) ([]Renderer, error) {
	if len(formats) == 0 {
		formats = AllFormats
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	seen := map[string]bool{}
	var out []Renderer
	for _, f := range formats {
		f = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f)), ".")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true

		switch f {
		case "md", "markdown":
			out = append(out, NewMarkdown())
		case "txt", "text":
			out = append(out, NewText())
		case "pdf":
			out = append(out, NewPDF(opts.FontPath, opts.Log))
		case "epub":
			out = append(out, NewEPUB(opts.Log))
		default:
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}

	return out, nil
}

// WriteAll renders doc with every renderer into dir/base<ext>. A failing
// renderer does not stop the others; the written paths and the joined
// errors are returned.
func WriteAll(dir, base string, doc story.Document, renderers []Renderer) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var (
		paths []string
		errs  []error
	)
	for _, r := range renderers {
		path := filepath.Join(dir, base+r.Extension())
		if err := writeAtomic(path, doc, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}

func writeAtomic(path string, doc story.Document, r Renderer) (err error) {
	tmp := path + TempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = r.Render(doc, f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func storyStatsLine(m story.Metadata) string {
	return fmt.Sprintf("Views=%d, Votes=%d, Chapters=%d", m.Stats.Views, m.Stats.Votes, m.Stats.ChapterCount)
}

func chapterStatsLine(s story.ChapterStats) string {
	return fmt.Sprintf("Views=%d, Votes=%d, Comments=%d", s.Views, s.Votes, s.Comments)
}

// imageRef is how text formats point at an image saved beside them.
func imageRef(b story.Block) string {
	return filepath.Base(b.Path)
}

func imageAlt(b story.Block) string {
	if b.Alt != "" {
		return b.Alt
	}

	return strings.TrimSuffix(imageRef(b), filepath.Ext(b.Path))
}
