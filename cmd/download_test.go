package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/wattdl/internal/config"
)

const storyPage = `<html><body>
<div class="gF-N5">Test Story</div>
<a href="/user/someone">someone</a>
<div class="coverWrapper__x"><img src="/cover.png"></div>
<div data-testid="toc"><ul>
  <li><a href="/101-one"><div>One</div></a></li>
  <li><a href="/102-two"><div>Two</div></a></li>
  <li><a href="/103-three"><div>Three</div></a></li>
</ul></div>
</body></html>`

const chapterOne = `<html><body>
<div class="story-stats"><span class="reads">5 reads</span></div>
<div class="panel-reading"><pre>
  <p>Opening line.</p>
  <figure><img src="/img/1.png" alt="scene"></figure>
  <p>Closing line.</p>
</pre></div>
</body></html>`

const chapterTwo = `<html><body>
<div class="panel-reading"><p>Only paragraph.</p></div>
</body></html>`

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func storyServer(t *testing.T) *httptest.Server {
	t.Helper()
	pic := pngBytes(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/story/1", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(storyPage)) })
	mux.HandleFunc("/101-one", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(chapterOne)) })
	mux.HandleFunc("/102-two", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(chapterTwo)) })
	mux.HandleFunc("/103-three", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	mux.HandleFunc("/cover.png", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(pic) })
	mux.HandleFunc("/img/1.png", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(pic) })

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testJob(t *testing.T, srv *httptest.Server) (*job, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output = filepath.Join(t.TempDir(), "out")
	cfg.DefaultURL = srv.URL + "/story/1"
	cfg.FontPath = filepath.Join(t.TempDir(), "none.ttf")

	log, _ := test.NewNullLogger()
	var out bytes.Buffer

	return &job{cfg: cfg, log: log, out: &out}, &out
}

func TestJob_RunWritesEveryFormat(t *testing.T) {
	srv := storyServer(t)
	j, out := testJob(t, srv)

	require.NoError(t, j.run(context.Background()))

	dir := j.cfg.Output
	for _, name := range []string{
		"wattpad_book.md", "wattpad_book.txt", "wattpad_book.pdf", "wattpad_book.epub",
		"cover.jpg", "chapter_1_image_1.jpg",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	md, err := os.ReadFile(filepath.Join(dir, "wattpad_book.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Test Story")
	assert.Contains(t, string(md), "**Author**: someone")
	assert.Contains(t, string(md), "Chapters=3")
	assert.Contains(t, string(md), "1. [One]("+srv.URL+"/101-one)\n2. [Two]("+srv.URL+"/102-two)\n\n")
	assert.Contains(t, string(md), "Opening line.\n\n![scene](chapter_1_image_1.jpg)\n\nClosing line.")
	assert.NotContains(t, string(md), "## Three")

	assert.Contains(t, out.String(), "Chapters:  2/3 (1 failed)")
	assert.Contains(t, out.String(), "Images:    2")
}

func TestJob_RangeSelection(t *testing.T) {
	srv := storyServer(t)
	j, _ := testJob(t, srv)
	j.cfg.DefaultRange = "2-2"
	j.cfg.Formats = []string{"md"}

	require.NoError(t, j.run(context.Background()))

	md, err := os.ReadFile(filepath.Join(j.cfg.Output, "wattpad_book.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "2. [Two]")
	assert.NotContains(t, string(md), "## One")
	assert.Contains(t, string(md), "Chapters=3")
	assert.NoFileExists(t, filepath.Join(j.cfg.Output, "wattpad_book.txt"))
}

func TestJob_BadRange(t *testing.T) {
	srv := storyServer(t)
	j, _ := testJob(t, srv)
	j.cfg.DefaultRange = "5-9"

	assert.ErrorContains(t, j.run(context.Background()), "no chapters selected")
}

func TestJob_DryRun(t *testing.T) {
	srv := storyServer(t)
	j, out := testJob(t, srv)
	j.dryRun = true
	j.cfg.DefaultList = "1,3"

	require.NoError(t, j.run(context.Background()))

	assert.Contains(t, out.String(), "Test Story by someone")
	assert.Contains(t, out.String(), "Dry-run: 2 of 3 chapters selected.")
	assert.Contains(t, out.String(), "  3) Three")
	assert.NoFileExists(t, filepath.Join(j.cfg.Output, "cover.jpg"))
	assert.NoFileExists(t, filepath.Join(j.cfg.Output, "wattpad_book.md"))
}

func TestJob_LandingFailureIsFatal(t *testing.T) {
	srv := storyServer(t)
	j, _ := testJob(t, srv)
	j.cfg.DefaultURL = srv.URL + "/missing"

	err := j.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading story page")
}

func TestJob_UnknownFormat(t *testing.T) {
	srv := storyServer(t)
	j, _ := testJob(t, srv)
	j.cfg.Formats = []string{"docx"}

	assert.ErrorContains(t, j.run(context.Background()), "docx")
}

func TestOriginOf(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", originOf("http://127.0.0.1:8080/story/1"))
	assert.Equal(t, "https://www.wattpad.com", originOf("not a url"))
}

func TestChapterRange(t *testing.T) {
	rng, err := chapterRange(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, "3-3", rng)

	for _, bad := range []string{"0", "-1", "28.5", "x"} {
		_, err := chapterRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestJob_SingleChapter(t *testing.T) {
	srv := storyServer(t)
	j, _ := testJob(t, srv)
	rng, err := chapterRange("1")
	require.NoError(t, err)
	j.cfg.DefaultRange = rng
	j.cfg.DefaultList = "2,3"
	j.cfg.Formats = []string{"md"}

	require.NoError(t, j.run(context.Background()))

	md, err := os.ReadFile(filepath.Join(j.cfg.Output, "wattpad_book.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "## One")
	assert.NotContains(t, string(md), "## Two")
}
