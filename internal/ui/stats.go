package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/wattdl/internal/util"
)

// Stats counts what a run produced. Safe for concurrent use.
type Stats struct {
	TotalImages    atomic.Int64
	TotalBytes     atomic.Int64
	TotalChapters  atomic.Int64
	FailedChapters atomic.Int64
}

func (s *Stats) AddImage(bytes int64) {
	s.TotalImages.Add(1)
	s.TotalBytes.Add(bytes)
}

// Summary is the end of run report.
type Summary struct {
	Title     string
	Stats     *Stats
	Outputs   []string
	Elapsed   time.Duration
	Requested int
}

func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", s.Title)
	fmt.Fprintf(w, "  Chapters:  %d/%d", s.Stats.TotalChapters.Load(), s.Requested)
	if failed := s.Stats.FailedChapters.Load(); failed > 0 {
		fmt.Fprintf(w, " (%d failed)", failed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Images:    %d (%s)\n", s.Stats.TotalImages.Load(), util.Human(s.Stats.TotalBytes.Load()))
	fmt.Fprintf(w, "  Elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))
	for _, o := range s.Outputs {
		fmt.Fprintf(w, "  Wrote:     %s\n", o)
	}
}
