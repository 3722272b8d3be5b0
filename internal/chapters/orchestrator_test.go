package chapters

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/wattdl/internal/extract"
	"github.com/brogergvhs/wattdl/internal/story"
)

type fakeFetcher struct {
	pages map[string]string
	delay func(url string) time.Duration

	current atomic.Int32
	peak    atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	cur := f.current.Add(1)
	defer f.current.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	if f.delay != nil {
		time.Sleep(f.delay(url))
	}

	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("HTTP 404")
	}

	return []byte(page), nil
}

type fakeSaver struct {
	mu   sync.Mutex
	fail map[string]bool
}

func (s *fakeSaver) Save(_ context.Context, url, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[url] {
		return "", errors.New("HTTP 500")
	}

	return filepath.Join("out", name), nil
}

type countingProgress struct {
	total int
	done  atomic.Int32
	final bool
}

func (p *countingProgress) SetTotal(n int) { p.total = n }
func (p *countingProgress) Increment()     { p.done.Add(1) }
func (p *countingProgress) MarkDone()      { p.final = true }

func chapterPage(text string) string {
	return fmt.Sprintf(`<div class="story-stats"><span class="reads">%d</span></div>
<div class="panel-reading"><p>%s</p></div>`, len(text), text)
}

func makeRefs(n int) ([]story.ChapterRef, map[string]string) {
	refs := make([]story.ChapterRef, n)
	pages := map[string]string{}
	for i := range refs {
		url := fmt.Sprintf("https://www.wattpad.com/%d-ch", 100+i)
		refs[i] = story.ChapterRef{Index: i, Title: fmt.Sprintf("Chapter %d", i+1), URL: url}
		pages[url] = chapterPage(fmt.Sprintf("text %d", i))
	}

	return refs, pages
}

func newOrchestrator(f Fetcher, saver extract.ImageSaver, workers int) *Orchestrator {
	logger, _ := test.NewNullLogger()
	return NewOrchestrator(f, extract.New(saver, logger), workers, logger)
}

func TestFetchAll_RestoresTOCOrder(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			refs, pages := makeRefs(12)
			rnd := rand.New(rand.NewSource(seed))
			delays := map[string]time.Duration{}
			for _, r := range refs {
				delays[r.URL] = time.Duration(rnd.Intn(15)) * time.Millisecond
			}

			f := &fakeFetcher{pages: pages, delay: func(u string) time.Duration { return delays[u] }}
			got := newOrchestrator(f, &fakeSaver{}, DefaultWorkers).FetchAll(context.Background(), refs)

			require.Len(t, got, len(refs))
			for i, res := range got {
				assert.Equal(t, refs[i], res.ChapterRef)
				assert.Equal(t, []story.Block{story.Text(fmt.Sprintf("text %d", i))}, res.Blocks)
			}
		})
	}
}

func TestFetchAll_ReverseCompletion(t *testing.T) {
	refs, pages := makeRefs(5)
	f := &fakeFetcher{pages: pages, delay: func(u string) time.Duration {
		for _, r := range refs {
			if r.URL == u {
				return time.Duration(len(refs)-r.Index) * 10 * time.Millisecond
			}
		}
		return 0
	}}

	got := newOrchestrator(f, &fakeSaver{}, 5).FetchAll(context.Background(), refs)

	require.Len(t, got, 5)
	for i := range got {
		assert.Equal(t, i, got[i].Index)
	}
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	refs, pages := makeRefs(20)
	f := &fakeFetcher{pages: pages, delay: func(string) time.Duration { return 10 * time.Millisecond }}

	got := newOrchestrator(f, &fakeSaver{}, DefaultWorkers).FetchAll(context.Background(), refs)

	assert.Len(t, got, 20)
	assert.LessOrEqual(t, f.peak.Load(), int32(DefaultWorkers))
	assert.Greater(t, f.peak.Load(), int32(1))
}

func TestFetchAll_SkipsFailedChapters(t *testing.T) {
	refs, pages := makeRefs(4)
	delete(pages, refs[1].URL)
	delete(pages, refs[3].URL)

	progress := &countingProgress{}
	got := newOrchestrator(&fakeFetcher{pages: pages}, &fakeSaver{}, 2).
		WithProgress(progress).
		FetchAll(context.Background(), refs)

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
	assert.Equal(t, story.ChapterStats{Views: len("text 2")}, got[1].Stats)

	assert.Equal(t, 4, progress.total)
	assert.EqualValues(t, 4, progress.done.Load())
	assert.True(t, progress.final)
}

func TestFetchAll_Empty(t *testing.T) {
	got := newOrchestrator(&fakeFetcher{}, &fakeSaver{}, 0).FetchAll(context.Background(), nil)
	assert.Empty(t, got)
}

type fakeExtractor struct {
	mu   sync.Mutex
	seen map[int]string
}

func (e *fakeExtractor) Chapter(_ context.Context, doc *goquery.Document, ref story.ChapterRef) []story.Block {
	text := doc.Find("div.panel-reading p").Text()

	e.mu.Lock()
	e.seen[ref.Index] = text
	e.mu.Unlock()

	return []story.Block{story.Text(ref.Title + ": " + text)}
}

func TestFetchAll_UsesGivenExtractor(t *testing.T) {
	refs, pages := makeRefs(3)
	ext := &fakeExtractor{seen: map[int]string{}}
	logger, _ := test.NewNullLogger()

	got := NewOrchestrator(&fakeFetcher{pages: pages}, ext, 2, logger).FetchAll(context.Background(), refs)

	require.Len(t, got, 3)
	assert.Equal(t, map[int]string{0: "text 0", 1: "text 1", 2: "text 2"}, ext.seen)
	assert.Equal(t, []story.Block{story.Text("Chapter 2: text 1")}, got[1].Blocks)
	assert.Equal(t, story.ChapterStats{Views: len("text 1")}, got[1].Stats)
}
