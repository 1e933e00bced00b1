package feed

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type Bucket string

const (
	BucketCurrent  Bucket = "current"
	BucketPrevious Bucket = "previous"
	BucketNone     Bucket = "none"
)

type Policy string

const (
	PolicyWeekly  Policy = "weekly"
	PolicyMonthly Policy = "monthly"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyWeekly, "":
		return PolicyWeekly, nil
	case PolicyMonthly:
		return PolicyMonthly, nil
	default:
		return "", fmt.Errorf("unknown recency policy %q", s)
	}
}

// ParsePubDate parses a source-native timestamp in any common layout.
func ParsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Classifier buckets items by age relative to now. Items whose pubDate
// cannot be parsed land in BucketNone.
type Classifier struct {
	policy Policy
}

func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

func (c *Classifier) Classify(pubDate string, now time.Time) Bucket {
	published, ok := ParsePubDate(pubDate)
	if !ok {
		return BucketNone
	}

	if c.policy == PolicyMonthly {
		return classifyMonthly(published, now)
	}
	return classifyWeekly(published, now)
}

func classifyWeekly(published, now time.Time) Bucket {
	days := int(math.Floor(now.Sub(published).Hours() / 24))

	switch {
	case days >= 0 && days <= 7:
		return BucketCurrent
	case days > 7 && days <= 14:
		return BucketPrevious
	default:
		return BucketNone
	}
}

func classifyMonthly(published, now time.Time) Bucket {
	published = published.In(now.Location())

	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	switch {
	case sameMonth(published, thisMonth):
		return BucketCurrent
	case sameMonth(published, lastMonth):
		return BucketPrevious
	default:
		return BucketNone
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// Run splits items into the current and previous buckets, each sorted by
// pubDate descending. Excluded items are dropped.
func (c *Classifier) Run(items []Item, now time.Time) (current, previous []Item) {
	type dated struct {
		item Item
		at   time.Time
	}

	var cur, prev []dated
	for _, item := range items {
		at, ok := ParsePubDate(item.PubDate)
		if !ok {
			continue
		}
		switch c.Classify(item.PubDate, now) {
		case BucketCurrent:
			cur = append(cur, dated{item, at})
		case BucketPrevious:
			prev = append(prev, dated{item, at})
		}
	}

	unwrap := func(ds []dated) []Item {
		sort.SliceStable(ds, func(i, j int) bool { return ds[i].at.After(ds[j].at) })
		out := make([]Item, len(ds))
		for i, d := range ds {
			out[i] = d.item
		}
		return out
	}

	return unwrap(cur), unwrap(prev)
}

// WithinWindow reports whether pubDate parses and lies no further than
// window before now.
func WithinWindow(pubDate string, now time.Time, window time.Duration) bool {
	published, ok := ParsePubDate(pubDate)
	if !ok {
		return false
	}
	return now.Sub(published) <= window
}

// PolicySpan is how far back from now the previous bucket of policy reaches.
func PolicySpan(policy Policy, now time.Time) time.Duration {
	if policy == PolicyMonthly {
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return now.Sub(thisMonth.AddDate(0, -1, 0))
	}
	return 14 * 24 * time.Hour
}

// SortByPubDateDesc orders items newest first. Items whose date cannot be
// parsed keep their relative order at the end.
func SortByPubDateDesc(items []Item) {
	dates := make([]time.Time, len(items))
	parsed := make([]bool, len(items))
	for i, item := range items {
		dates[i], parsed[i] = ParsePubDate(item.PubDate)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if parsed[i] != parsed[j] {
			return parsed[i]
		}
		return dates[i].After(dates[j])
	})

	sorted := make([]Item, len(items))
	for k, i := range idx {
		sorted[k] = items[i]
	}
	copy(items, sorted)
}
