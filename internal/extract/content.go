package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/downloader"
	"github.com/brogergvhs/wattdl/internal/story"
)

const (
	selPanel      = "div.panel-reading"
	selWrapper    = "pre"
	selStats      = "div.story-stats"
	selStatReads  = "span.reads"
	selStatVotes  = "span.votes"
	selStatCounts = "span.comments.on-comments"
)

var reWidgetClass = regexp.MustCompile(`comment-marker|component-wrapper`)

// rawBlock is a content node before images are downloaded.
type rawBlock struct {
	text string
	src  string
	alt  string
}

type strategy func(panel *goquery.Selection) []rawBlock

// pickStrategy chooses the layout once per chapter: older chapters wrap
// their paragraphs and figures in a <pre>, newer ones put them directly
// in the reading panel.
func pickStrategy(panel *goquery.Selection) (string, strategy) {
	if panel.Find(selWrapper).Length() > 0 {
		return "wrapped", wrappedBlocks
	}

	return "inline", inlineBlocks
}

func wrappedBlocks(panel *goquery.Selection) []rawBlock {
	var out []rawBlock
	panel.Find(selWrapper).First().Find("p, figure").Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) == "figure" {
			if b, ok := imageBlock(el.Find("img[src]").First()); ok {
				out = append(out, b)
			}
			return
		}
		if b, ok := paragraphBlock(el); ok {
			out = append(out, b)
		}
	})

	return out
}

func inlineBlocks(panel *goquery.Selection) []rawBlock {
	var out []rawBlock
	panel.Find("p, img").Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) == "img" {
			if b, ok := imageBlock(el); ok {
				out = append(out, b)
			}
			return
		}
		if b, ok := paragraphBlock(el); ok {
			out = append(out, b)
		}
	})

	return out
}

func paragraphBlock(p *goquery.Selection) (rawBlock, bool) {
	p = p.Clone()
	p.Find("button, div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return reWidgetClass.MatchString(class)
	}).Remove()
	// images are emitted as their own blocks
	p.Find("img").Remove()

	text := inlineText(p)

	return rawBlock{text: text}, text != ""
}

func imageBlock(img *goquery.Selection) (rawBlock, bool) {
	src, ok := img.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return rawBlock{}, false
	}
	alt, _ := img.Attr("alt")

	return rawBlock{src: src, alt: Sanitize(strings.TrimSpace(alt))}, true
}

// Chapter extracts the ordered content blocks of one chapter page and
// saves its images as chapter_<n>_image_<k>.jpg. A failed image is
// dropped and does not consume a number.
func (e *Extractor) Chapter(ctx context.Context, doc *goquery.Document, ref story.ChapterRef) []story.Block {
	log := e.log.WithFields(logrus.Fields{"chapter": ref.Number(), "url": ref.URL})

	panel := doc.Find(selPanel).First()
	if panel.Length() == 0 {
		log.Debug("reading panel missing")
		return []story.Block{story.Text(story.PlaceholderChapterText)}
	}

	name, collect := pickStrategy(panel)
	raw := collect(panel)
	log.WithField("layout", name).Debugf("found %d content nodes", len(raw))

	var blocks []story.Block
	n := 1
	for _, rb := range raw {
		if rb.src == "" {
			blocks = append(blocks, story.Text(rb.text))
			continue
		}

		path, err := e.images.Save(ctx, resolveURL(ref.URL, rb.src), downloader.ImageName(ref.Number(), n))
		if err != nil {
			log.WithError(err).Warn("image skipped")
			continue
		}
		blocks = append(blocks, story.Image(path, rb.alt))
		n++
	}

	if len(blocks) == 0 {
		return []story.Block{story.Text(story.PlaceholderChapterText)}
	}

	return blocks
}

func ChapterStats(doc *goquery.Document) story.ChapterStats {
	var st story.ChapterStats

	box := doc.Find(selStats).First()
	if box.Length() == 0 {
		return st
	}

	st.Views = ParseCount(box.Find(selStatReads).First().Text())
	st.Votes = ParseCount(box.Find(selStatVotes).First().Text())
	st.Comments = ParseCount(box.Find(selStatCounts).First().Text())

	return st
}
