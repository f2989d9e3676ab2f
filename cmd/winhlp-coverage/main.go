// Command winhlp-coverage approximates the Python original's
// collect_coverage_files.py: given a directory of candidate .HLP files, it
// picks a small representative subset rather than decoding every file in a
// large corpus during routine testing. True branch-coverage
// instrumentation has no equivalent here, so this buckets candidates by
// quantiles over their topic count and keeps one file per bucket; the
// |SYSTEM version and flags are reported for each pick but take no part in
// the bucketing.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/go-winhlp/winhlp"
)

var (
	dir     = flag.String("dir", "", "directory of .HLP/.GID files to sample")
	buckets = flag.Int("buckets", 4, "number of topic-count quantile buckets to keep one representative from")
)

type candidate struct {
	path       string
	topicCount float64
	major      uint16
	minor      uint16
	flags      uint16
}

func scan(dir string) ([]candidate, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".hlp" && ext != ".gid" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := ioutil.ReadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		h, err := winhlp.Open(raw, winhlp.OpenOptions{})
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		topics, err := h.Topics(context.Background())
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			continue
		}
		out = append(out, candidate{
			path:       path,
			topicCount: float64(len(topics)),
			major:      h.System.Header.Major,
			minor:      h.System.Header.Minor,
			flags:      h.System.Header.Flags,
		})
	}
	return out, nil
}

// representatives partitions candidates into n quantile buckets by topic
// count (stat.Quantile over the sorted topic-count distribution) and keeps,
// from each bucket, the not-yet-picked candidate whose topic count is
// closest to the quantile at that bucket's midpoint.
func representatives(candidates []candidate, n int) []candidate {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].topicCount < sorted[j].topicCount })

	counts := make([]float64, len(sorted))
	for i, c := range sorted {
		counts[i] = c.topicCount
	}

	var reps []candidate
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		p := (float64(i) + 0.5) / float64(n)
		target := stat.Quantile(p, stat.Empirical, counts, nil)
		best, bestDist := -1, -1.0
		for j, c := range sorted {
			if seen[c.path] {
				continue
			}
			d := c.topicCount - target
			if d < 0 {
				d = -d
			}
			if best == -1 || d < bestDist {
				best, bestDist = j, d
			}
		}
		if best == -1 {
			continue
		}
		seen[sorted[best].path] = true
		reps = append(reps, sorted[best])
	}
	return reps
}

func main() {
	flag.Parse()
	if *dir == "" {
		log.Fatal("syntax: winhlp-coverage -dir=<directory of .HLP files>")
	}
	candidates, err := scan(*dir)
	if err != nil {
		log.Fatal(err)
	}
	if len(candidates) == 0 {
		log.Fatal("no .HLP/.GID candidates found")
	}
	reps := representatives(candidates, *buckets)
	for _, r := range reps {
		fmt.Printf("%s\ttopics=%d\tversion=%d.%d\tflags=%#x\n", r.path, int(r.topicCount), r.major, r.minor, r.flags)
	}
}
