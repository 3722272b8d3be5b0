package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/story"
)

const (
	selTitle          = "div.gF-N5"
	selAuthor         = `a[href*="/user/"]`
	selDescriptionBox = "div.glL-c"
	selDescription    = "pre.mpshL._6pPkw"
	selCopyright      = "div.DxZKg"
	selTagBox         = "div.F8LJw"
	selTag            = "a.XZbAz"
	selTagLabel       = "span.typography-label-small-semi"
	selStatList       = "ul.n0iXe"
	selStatItem       = "li._0jt-y"
	selStatValue      = "div[data-tip]"
	selCover          = `div[class*="coverWrapper"] img`
)

// ImageSaver persists a remote image under name and returns the local path.
type ImageSaver interface {
	Save(ctx context.Context, url, name string) (string, error)
}

type Extractor struct {
	images ImageSaver
	log    logrus.FieldLogger
}

func New(images ImageSaver, log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Extractor{images: images, log: log}
}

// Metadata extracts the landing-page metadata and downloads the cover.
// chapterCount comes from the table of contents, not from the page stats.
func (e *Extractor) Metadata(ctx context.Context, doc *goquery.Document, pageURL string, chapterCount int) story.Metadata {
	meta, gaps := ParseMetadata(doc)
	meta.Stats.ChapterCount = chapterCount

	for _, g := range gaps {
		e.log.WithField("field", g).Debug("landing page node missing, using placeholder")
	}

	src, ok := CoverURL(doc)
	if !ok {
		e.log.WithField("field", "cover").Debug("landing page node missing, story has no cover")
		return meta
	}

	path, err := e.images.Save(ctx, resolveURL(pageURL, src), story.CoverFilename)
	if err != nil {
		e.log.WithError(err).Warn("cover download failed")
		return meta
	}
	meta.CoverPath = path

	return meta
}

// ParseMetadata reads every field independently and reports the names of
// the fields that fell back to a placeholder.
func ParseMetadata(doc *goquery.Document) (story.Metadata, []string) {
	var gaps []string
	meta := story.Metadata{}

	meta.Title = inlineText(doc.Find(selTitle).First())
	if meta.Title == "" {
		meta.Title = story.PlaceholderTitle
		gaps = append(gaps, "title")
	}

	meta.Author = inlineText(doc.Find(selAuthor).First())
	if meta.Author == "" {
		meta.Author = story.PlaceholderAuthor
		gaps = append(gaps, "author")
	}

	meta.Description = parseDescription(doc)
	if meta.Description == "" {
		meta.Description = story.PlaceholderDescription
		gaps = append(gaps, "description")
	}

	meta.Tags = parseTags(doc)
	if len(meta.Tags) == 0 {
		gaps = append(gaps, "tags")
	}

	meta.Stats.Views, meta.Stats.Votes = parseStoryStats(doc)

	return meta, gaps
}

func parseDescription(doc *goquery.Document) string {
	desc := doc.Find(selDescriptionBox).First().Find(selDescription).First()
	if desc.Length() == 0 {
		return ""
	}

	desc = desc.Clone()
	desc.Find(selCopyright).Remove()

	return blockText(desc)
}

func parseTags(doc *goquery.Document) []string {
	var tags []string
	doc.Find(selTagBox).First().Find(selTag).Each(func(_ int, a *goquery.Selection) {
		label := a.Find(selTagLabel).First()
		if label.Length() == 0 {
			return
		}
		if t := inlineText(label); t != "" {
			tags = append(tags, t)
		}
	})

	return tags
}

// parseStoryStats reads the stat list positionally: views, then votes.
// Later items (the site's own chapter count) are ignored.
func parseStoryStats(doc *goquery.Document) (views, votes int) {
	doc.Find(selStatList).First().Find(selStatItem).EachWithBreak(func(i int, li *goquery.Selection) bool {
		tip, ok := li.Find(selStatValue).First().Attr("data-tip")
		if !ok {
			return i < 1
		}

		switch i {
		case 0:
			views = ParseCount(tip)
		case 1:
			votes = ParseCount(tip)
		}

		return i < 1
	})

	return views, votes
}

func CoverURL(doc *goquery.Document) (string, bool) {
	src, ok := doc.Find(selCover).First().Attr("src")
	src = strings.TrimSpace(src)

	return src, ok && src != ""
}

func resolveURL(baseURL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}
