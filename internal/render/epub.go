package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/story"
)

const epubCSS = `body { margin: 1em; line-height: 1.5; }
img { max-width: 100%; height: auto; }
.stats { font-size: 0.85em; color: #666; }
.missing { font-style: italic; color: #999; }
.toc { list-style-type: none; padding-left: 0; }
.toc li { margin-bottom: 0.6em; }`

type EPUB struct {
	log logrus.FieldLogger
}

func NewEPUB(log logrus.FieldLogger) *EPUB {
	return &EPUB{log: log}
}

func (r *EPUB) Extension() string {
	return ".epub"
}

func (r *EPUB) Render(doc story.Document, w io.Writer) error {
	m := doc.Meta

	e, err := epub.NewEpub(m.Title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetAuthor(m.Author)
	e.SetDescription(m.Description)
	e.SetLang("en")

	cssPath, err := e.AddCSS("data:text/css;base64,"+base64.StdEncoding.EncodeToString([]byte(epubCSS)), "styles.css")
	if err != nil {
		r.log.WithError(err).Warn("epub stylesheet not added")
		cssPath = ""
	}

	coverRef := ""
	if m.HasCover() {
		coverRef = r.addImage(e, story.Image(m.CoverPath, "cover"))
		if coverRef != "" {
			e.SetCover(coverRef, "")
		}
	}

	if _, err := e.AddSection(aboutBody(m, coverRef), m.Title, "about.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding about page: %w", err)
	}
	if _, err := e.AddSection(contentsBody(doc.Chapters), "Table of Contents", "contents.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding contents page: %w", err)
	}

	for _, ch := range doc.Chapters {
		body := r.chapterBody(e, ch)
		filename := fmt.Sprintf("chapter%03d.xhtml", ch.Number())
		if _, err := e.AddSection(body, ch.Title, filename, cssPath); err != nil {
			return fmt.Errorf("adding chapter %d: %w", ch.Number(), err)
		}
	}

	if _, err := e.WriteTo(w); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}

	return nil
}

// addImage embeds the file behind b and returns its path inside the book,
// or "" when the file is missing or rejected.
func (r *EPUB) addImage(e *epub.Epub, b story.Block) string {
	name := imageRef(b)
	if _, err := os.Stat(b.Path); err != nil {
		r.log.WithError(fmt.Errorf("%w: %s", ErrResourceMissing, name)).Warn("image left out of epub")
		return ""
	}

	ref, err := e.AddImage(b.Path, name)
	if err != nil {
		r.log.WithError(fmt.Errorf("%w: %s: %v", ErrResourceMissing, name, err)).Warn("image left out of epub")
		return ""
	}

	return ref
}

func (r *EPUB) chapterBody(e *epub.Epub, ch story.ChapterResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(ch.Title))
	fmt.Fprintf(&b, "<p class=\"stats\">Chapter stats: %s</p>\n", chapterStatsLine(ch.Stats))

	for _, blk := range ch.Blocks {
		if !blk.IsImage() {
			fmt.Fprintf(&b, "<p>%s</p>\n", escapeLines(blk.Text))
			continue
		}

		if ref := r.addImage(e, blk); ref != "" {
			fmt.Fprintf(&b, "<p><img src=\"%s\" alt=\"%s\" /></p>\n", ref, html.EscapeString(imageAlt(blk)))
		} else {
			fmt.Fprintf(&b, "<p class=\"missing\">[Image unavailable: %s]</p>\n", html.EscapeString(imageRef(blk)))
		}
	}

	return b.String()
}

func aboutBody(m story.Metadata, coverRef string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(m.Title))
	if coverRef != "" {
		fmt.Fprintf(&b, "<p><img src=\"%s\" alt=\"cover\" /></p>\n", coverRef)
	}
	fmt.Fprintf(&b, "<p><strong>Author</strong>: %s</p>\n", html.EscapeString(m.Author))
	fmt.Fprintf(&b, "<p><strong>Description</strong>: %s</p>\n", escapeLines(m.Description))
	fmt.Fprintf(&b, "<p><strong>Tags</strong>: %s</p>\n", html.EscapeString(m.TagLine()))
	fmt.Fprintf(&b, "<p><strong>Stats</strong>: %s</p>\n", storyStatsLine(m))

	return b.String()
}

func contentsBody(chapters []story.ChapterResult) string {
	var b strings.Builder

	b.WriteString("<h1>Table of Contents</h1>\n<ol class=\"toc\">\n")
	for _, ch := range chapters {
		fmt.Fprintf(&b, "<li>%d. <a href=\"chapter%03d.xhtml\">%s</a></li>\n",
			ch.Number(), ch.Number(), html.EscapeString(ch.Title))
	}
	b.WriteString("</ol>\n")

	return b.String()
}

func escapeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}

	return strings.Join(lines, "<br/>")
}
