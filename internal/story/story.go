package story

import "strings"

const (
	PlaceholderTitle       = "Untitled"
	PlaceholderAuthor      = "Unknown author"
	PlaceholderDescription = "No description"
	PlaceholderTags        = "No tags"
	PlaceholderChapterText = "Chapter text missing"

	CoverFilename = "cover.jpg"
)

type Stats struct {
	Views        int
	Votes        int
	ChapterCount int
}

// Metadata is extracted once from the landing page and never mutated afterwards.
type Metadata struct {
	Title       string
	Author      string
	Description string
	Tags        []string
	Stats       Stats
	CoverPath   string // empty when no cover was saved
}

func (m Metadata) TagLine() string {
	if len(m.Tags) == 0 {
		return PlaceholderTags
	}

	return strings.Join(m.Tags, ", ")
}

func (m Metadata) HasCover() bool {
	return m.CoverPath != ""
}

// ChapterRef is one table of contents entry. Index is its 0-based position in the TOC.
type ChapterRef struct {
	Index int
	Title string
	URL   string
}

// Number is the 1-based TOC position.
func (c ChapterRef) Number() int {
	return c.Index + 1
}

type BlockKind int

const (
	TextBlock BlockKind = iota
	ImageBlock
)

// Block is either a paragraph of text or a locally saved image.
type Block struct {
	Kind BlockKind
	Text string
	Path string
	Alt  string
}

func Text(s string) Block {
	return Block{Kind: TextBlock, Text: s}
}

func Image(path, alt string) Block {
	return Block{Kind: ImageBlock, Path: path, Alt: alt}
}

func (b Block) IsImage() bool {
	return b.Kind == ImageBlock
}

type ChapterStats struct {
	Views    int
	Votes    int
	Comments int
}

type ChapterResult struct {
	ChapterRef
	Blocks []Block
	Stats  ChapterStats
}

// Document is the only value handed from extraction to rendering.
// Chapters are sorted by their TOC index; failed chapters are absent.
type Document struct {
	Meta     Metadata
	Chapters []ChapterResult
}
