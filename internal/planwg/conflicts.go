package planwg

import "sort"

// Conflict reports a file overlap between two threads in the same channel.
// ThreadA sorts before ThreadB so the pair is a stable unordered key.
type Conflict struct {
	ThreadA string   `json:"thread_a"`
	ThreadB string   `json:"thread_b"`
	Files   []string `json:"files"`
}

// FindConflicts recomputes the full conflict set for a channel. Two threads
// conflict when both are still awaiting feedback, both declare files, and
// the declared sets intersect; approving either side of a pair retires the
// conflict. This is deliberately a pure function of current state rather
// than an incrementally maintained index; thread counts per channel are
// small.
func FindConflicts(rec *ChannelRecord) []Conflict {
	ids := make([]string, 0, len(rec.Threads))
	for ts, t := range rec.Threads {
		if len(t.Files) > 0 && !t.Approved() {
			ids = append(ids, ts)
		}
	}
	sort.Strings(ids)

	var conflicts []Conflict
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := rec.Threads[ids[i]], rec.Threads[ids[j]]
			overlap := intersectFiles(a.Files, b.Files)
			if len(overlap) == 0 {
				continue
			}
			conflicts = append(conflicts, Conflict{
				ThreadA: ids[i],
				ThreadB: ids[j],
				Files:   overlap,
			})
		}
	}
	return conflicts
}

func intersectFiles(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, f := range a {
		set[f] = struct{}{}
	}
	var overlap []string
	seen := map[string]struct{}{}
	for _, f := range b {
		if _, ok := set[f]; !ok {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		overlap = append(overlap, f)
	}
	sort.Strings(overlap)
	return overlap
}
