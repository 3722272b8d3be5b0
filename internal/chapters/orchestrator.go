package chapters

import (
	"bytes"
	"context"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brogergvhs/wattdl/internal/extract"
	"github.com/brogergvhs/wattdl/internal/story"
)

const DefaultWorkers = 5

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Progress interface {
	SetTotal(total int)
	Increment()
	MarkDone()
}

// ChapterExtractor turns a parsed chapter page into content blocks.
// *extract.Extractor is the production implementation.
type ChapterExtractor interface {
	Chapter(ctx context.Context, doc *goquery.Document, ref story.ChapterRef) []story.Block
}

type Orchestrator struct {
	fetcher   Fetcher
	extractor ChapterExtractor
	workers   int
	progress  Progress
	log       logrus.FieldLogger
}

func NewOrchestrator(f Fetcher, e ChapterExtractor, workers int, log logrus.FieldLogger) *Orchestrator {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Orchestrator{
		fetcher:   f,
		extractor: e,
		workers:   workers,
		log:       log,
	}
}

func (o *Orchestrator) WithProgress(p Progress) *Orchestrator {
	o.progress = p
	return o
}

// FetchAll fetches and extracts every chapter with at most o.workers in
// flight. Chapters whose page cannot be fetched are left out; the rest
// come back sorted by TOC index whatever order they finished in.
func (o *Orchestrator) FetchAll(ctx context.Context, refs []story.ChapterRef) []story.ChapterResult {
	if o.progress != nil {
		o.progress.SetTotal(len(refs))
		defer o.progress.MarkDone()
	}

	// one slot per ref, written only by the goroutine that owns it
	slots := make([]*story.ChapterResult, len(refs))

	var g errgroup.Group
	g.SetLimit(o.workers)

	for i, ref := range refs {
		g.Go(func() error {
			defer o.tick()

			res, err := o.fetchOne(ctx, ref)
			if err != nil {
				o.log.WithFields(logrus.Fields{
					"chapter": ref.Number(),
					"url":     ref.URL,
				}).WithError(err).Error("chapter skipped")
				return nil
			}
			slots[i] = res

			return nil
		})
	}
	_ = g.Wait()

	out := make([]story.ChapterResult, 0, len(refs))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

func (o *Orchestrator) fetchOne(ctx context.Context, ref story.ChapterRef) (*story.ChapterResult, error) {
	body, err := o.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	o.log.WithField("chapter", ref.Number()).Infof("Loaded chapter: %s", ref.Title)

	return &story.ChapterResult{
		ChapterRef: ref,
		Blocks:     o.extractor.Chapter(ctx, doc, ref),
		Stats:      extract.ChapterStats(doc),
	}, nil
}

func (o *Orchestrator) tick() {
	if o.progress != nil {
		o.progress.Increment()
	}
}
