package chapters

import (
	"strconv"
	"strings"

	"github.com/brogergvhs/wattdl/internal/story"
)

// Filter narrows the TOC to a 1-based range ("5-12") or list ("1,3,5").
// Range wins over list; with neither, all refs are returned. Selected
// refs keep their TOC index.
func Filter(all []story.ChapterRef, rng, list string) []story.ChapterRef {
	if rng != "" {
		return FilterRange(all, rng)
	}
	if list != "" {
		return FilterList(all, list)
	}

	return all
}

func FilterRange(all []story.ChapterRef, rng string) []story.ChapterRef {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil
	}

	start, err1 := atoi(parts[0])
	end, err2 := atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	if start <= 0 || end <= 0 || start > end || end > len(all) {
		return nil
	}

	return all[start-1 : end]
}

func FilterList(all []story.ChapterRef, list string) []story.ChapterRef {
	out := []story.ChapterRef{}
	seen := map[int]bool{}

	for n := range strings.SplitSeq(list, ",") {
		idx, err := atoi(n)
		if err != nil || idx <= 0 || idx > len(all) || seen[idx] {
			continue
		}
		seen[idx] = true

		out = append(out, all[idx-1])
	}

	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
