package render

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"

	"github.com/brogergvhs/wattdl/internal/story"
)

const (
	DefaultFontPath = "fonts/DejaVuSans.ttf"

	pdfFontFamily  = "StoryFont"
	pdfCoreFont    = "Helvetica"
	pdfMargin      = 15.0
	pdfLineHeight  = 5.5
	pdfBodySize    = 11.0
	pdfHeadingSize = 16.0
)

type PDF struct {
	fontPath string
	log      logrus.FieldLogger
}

func NewPDF(fontPath string, log logrus.FieldLogger) *PDF {
	if fontPath == "" {
		fontPath = DefaultFontPath
	}

	return &PDF{fontPath: fontPath, log: log}
}

func (r *PDF) Extension() string {
	return ".pdf"
}

// pdfDoc bundles the document with the font family and text translator
// chosen for it.
type pdfDoc struct {
	*gofpdf.Fpdf
	family string
	tr     func(string) string
	log    logrus.FieldLogger
}

func (r *PDF) Render(doc story.Document, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.Meta.Title, true)
	pdf.SetAuthor(doc.Meta.Author, true)

	p := &pdfDoc{Fpdf: pdf, log: r.log}
	r.loadFont(p)

	p.AddPage()
	p.metadataPage(doc.Meta)
	p.tocPage(doc.Chapters)
	for _, ch := range doc.Chapters {
		p.chapterPage(ch)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("building pdf: %w", err)
	}

	return pdf.Output(w)
}

// loadFont embeds the configured TrueType font for full Unicode coverage.
// Without it the core Helvetica font is used and characters outside
// cp1252 degrade.
func (r *PDF) loadFont(p *pdfDoc) {
	if _, err := os.Stat(r.fontPath); err == nil {
		p.AddUTF8Font(pdfFontFamily, "", r.fontPath)
		p.AddUTF8Font(pdfFontFamily, "B", r.fontPath)
		if p.Err() {
			r.log.WithError(p.Error()).Warn("font could not be loaded, falling back to Helvetica")
			p.ClearError()
		} else {
			p.family = pdfFontFamily
			p.tr = func(s string) string { return s }
			return
		}
	} else {
		r.log.WithField("font", r.fontPath).Warn("font not found, non-Latin text may not render")
	}

	p.family = pdfCoreFont
	p.tr = p.UnicodeTranslatorFromDescriptor("")
}

func (p *pdfDoc) heading(text string, size float64) {
	p.SetFont(p.family, "B", size)
	p.MultiCell(0, size*0.5, p.tr(text), "", "L", false)
	p.Ln(3)
}

func (p *pdfDoc) paragraph(text string) {
	p.SetFont(p.family, "", pdfBodySize)
	p.MultiCell(0, pdfLineHeight, p.tr(text), "", "L", false)
	p.Ln(2)
}

func (p *pdfDoc) field(label, value string) {
	p.SetFont(p.family, "B", pdfBodySize)
	p.Write(pdfLineHeight, p.tr(label+": "))
	p.SetFont(p.family, "", pdfBodySize)
	p.MultiCell(0, pdfLineHeight, p.tr(value), "", "L", false)
	p.Ln(2)
}

func (p *pdfDoc) metadataPage(m story.Metadata) {
	p.heading(m.Title, 20)
	if m.HasCover() {
		p.image(story.Image(m.CoverPath, "cover"))
	}
	p.field("Author", m.Author)
	p.field("Description", m.Description)
	p.field("Tags", m.TagLine())
	p.field("Stats", storyStatsLine(m))
}

func (p *pdfDoc) tocPage(chapters []story.ChapterResult) {
	p.AddPage()
	p.heading("Table of Contents", pdfHeadingSize)
	for _, ch := range chapters {
		p.SetFont(p.family, "", pdfBodySize)
		p.MultiCell(0, pdfLineHeight, p.tr(fmt.Sprintf("%d. %s", ch.Number(), ch.Title)), "", "L", false)
		p.SetFont(p.family, "", 8)
		p.SetTextColor(100, 100, 100)
		p.MultiCell(0, 4, ch.URL, "", "L", false)
		p.SetTextColor(0, 0, 0)
		p.Ln(1)
	}
}

func (p *pdfDoc) chapterPage(ch story.ChapterResult) {
	p.AddPage()
	p.heading(ch.Title, pdfHeadingSize)

	p.SetFont(p.family, "", 9)
	p.SetTextColor(100, 100, 100)
	p.MultiCell(0, 4.5, p.tr("Chapter stats: "+chapterStatsLine(ch.Stats)), "", "L", false)
	p.SetTextColor(0, 0, 0)
	p.Ln(4)

	for _, b := range ch.Blocks {
		if b.IsImage() {
			p.image(b)
			continue
		}
		p.paragraph(b.Text)
	}
}

// image places b scaled to the printable width. Images gofpdf cannot
// decode are replaced with a text reference.
func (p *pdfDoc) image(b story.Block) {
	typ, err := pdfImageType(b.Path)
	if err != nil {
		p.log.WithError(err).WithField("image", b.Path).Warn("image not embedded in pdf")
		p.paragraph("[Image: " + imageRef(b) + "]")
		return
	}

	opts := gofpdf.ImageOptions{ImageType: typ, ReadDpi: true}
	info := p.RegisterImageOptions(b.Path, opts)
	if info == nil || p.Err() {
		p.log.WithError(p.Error()).WithField("image", b.Path).Warn("image not embedded in pdf")
		p.ClearError()
		p.paragraph("[Image: " + imageRef(b) + "]")
		return
	}

	pageW, pageH := p.GetPageSize()
	maxW := pageW - 2*pdfMargin
	maxH := pageH - 2*pdfMargin
	w, h := info.Extent()
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}

	p.ImageOptions(b.Path, pdfMargin, p.GetY(), w, h, true, opts, 0, "")
	p.Ln(3)
}

func pdfImageType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrResourceMissing, filepath.Base(path))
	}
	defer func() {
		_ = f.Close()
	}()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)

	switch mt := http.DetectContentType(head[:n]); mt {
	case "image/jpeg":
		return "JPG", nil
	case "image/png":
		return "PNG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %s", mt)
	}
}
