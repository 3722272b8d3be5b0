package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/brogergvhs/wattdl/internal/story"
)

type Markdown struct{}

func NewMarkdown() *Markdown {
	return &Markdown{}
}

func (r *Markdown) Extension() string {
	return ".md"
}

func (r *Markdown) Render(doc story.Document, w io.Writer) error {
	bw := bufio.NewWriter(w)
	m := doc.Meta

	fmt.Fprintf(bw, "# %s\n\n", m.Title)
	if m.HasCover() {
		fmt.Fprintf(bw, "![cover](%s)\n\n", imageRef(story.Image(m.CoverPath, "")))
	}
	fmt.Fprintf(bw, "**Author**: %s\n\n", m.Author)
	fmt.Fprintf(bw, "**Description**: %s\n\n", m.Description)
	fmt.Fprintf(bw, "**Tags**: %s\n\n", m.TagLine())
	fmt.Fprintf(bw, "**Stats**: %s\n\n", storyStatsLine(m))

	fmt.Fprintf(bw, "## Table of Contents\n")
	for _, ch := range doc.Chapters {
		fmt.Fprintf(bw, "%d. [%s](%s)\n", ch.Number(), ch.Title, ch.URL)
	}
	fmt.Fprintf(bw, "\n")

	for _, ch := range doc.Chapters {
		fmt.Fprintf(bw, "## %s\n\n", ch.Title)
		fmt.Fprintf(bw, "**Chapter stats**: %s\n\n", chapterStatsLine(ch.Stats))
		for _, b := range ch.Blocks {
			if b.IsImage() {
				fmt.Fprintf(bw, "![%s](%s)\n\n", imageAlt(b), imageRef(b))
				continue
			}
			fmt.Fprintf(bw, "%s\n\n", b.Text)
		}
	}

	return bw.Flush()
}
