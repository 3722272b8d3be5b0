package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/wattdl/internal/story"
)

const (
	SiteOrigin = "https://www.wattpad.com"

	selTOC = `div[data-testid="toc"]`
)

var reChapterHref = regexp.MustCompile(`/[0-9]+-`)

// ChapterList returns the table of contents in document order. A missing
// TOC container yields an empty list.
func ChapterList(doc *goquery.Document, origin string) []story.ChapterRef {
	var out []story.ChapterRef

	doc.Find(selTOC).First().Find("li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return reChapterHref.MatchString(href)
		}).First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		title := inlineText(link.Find("div").First())
		if title == "" {
			title = story.PlaceholderTitle
		}

		out = append(out, story.ChapterRef{
			Index: len(out),
			Title: title,
			URL:   absoluteURL(origin, strings.TrimSpace(href)),
		})
	})

	return out
}

func absoluteURL(origin, href string) string {
	if strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "http://") {
		return href
	}

	return resolveURL(origin, href)
}
