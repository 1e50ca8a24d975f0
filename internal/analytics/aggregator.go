package analytics

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"linkgate/internal/entities"
	"linkgate/internal/repository"
)

type DailyPoint struct {
	Date   string `json:"date"`
	Links  int64  `json:"links"`
	Clicks int64  `json:"clicks"`
}

type TopLink struct {
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	Clicks      int64  `json:"clicks"`
}

type TopDomain struct {
	Domain string `json:"domain"`
	Clicks int64  `json:"clicks"`
}

type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Breakdowns splits the clicks in the window by each click dimension.
type Breakdowns struct {
	Referrers []Bucket `json:"referrers"`
	Devices   []Bucket `json:"devices"`
	Countries []Bucket `json:"countries"`
}

type Rollups struct {
	TotalLinks  int64        `json:"totalLinks"`
	TotalClicks int64        `json:"totalClicks"`
	LinksToday  int64        `json:"linksToday"`
	ClicksToday int64        `json:"clicksToday"`
	Daily       []DailyPoint `json:"daily"`
	TopLinks    []TopLink    `json:"topLinks"`
	TopDomains  []TopDomain  `json:"topDomains"`
	Breakdowns  *Breakdowns  `json:"breakdowns,omitempty"`
	Timezone    string       `json:"timezone"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

type RollupOptions struct {
	// IncludePrivate keeps private and password-protected links in the
	// top-N lists.
	IncludePrivate bool
	// IncludeBreakdowns adds per-dimension click breakdowns.
	IncludeBreakdowns bool
}

type AggregatorConfig struct {
	Location   *time.Location
	WindowDays int
	TopN       int
}

// Aggregator computes rollups on demand from the stats repository.
type Aggregator struct {
	stats      repository.StatsRepository
	loc        *time.Location
	windowDays int
	topN       int
	now        func() time.Time
}

func NewAggregator(stats repository.StatsRepository, cfg AggregatorConfig) *Aggregator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	return &Aggregator{
		stats:      stats,
		loc:        cfg.Location,
		windowDays: cfg.WindowDays,
		topN:       cfg.TopN,
		now:        time.Now,
	}
}

// startOfDay returns local midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Rollups runs the aggregate queries concurrently and assembles the result.
func (a *Aggregator) Rollups(ctx context.Context, opts RollupOptions) (*Rollups, error) {
	now := a.now()
	today := startOfDay(now, a.loc)
	windowStart := today.AddDate(0, 0, -(a.windowDays - 1))

	out := &Rollups{Timezone: a.loc.String(), GeneratedAt: now.UTC()}
	var (
		dailyLinks, dailyClicks map[string]int64
		linkClicks              []entities.LinkClicks
		byDimension             [3]map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalLinks, err = a.stats.CountLinks(gctx, time.Time{})
		return err
	})
	g.Go(func() (err error) {
		out.TotalClicks, err = a.stats.SumClicks(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.LinksToday, err = a.stats.CountLinks(gctx, today)
		return err
	})
	g.Go(func() (err error) {
		out.ClicksToday, err = a.stats.CountClicks(gctx, today)
		return err
	})
	g.Go(func() (err error) {
		dailyLinks, err = a.stats.DailyLinks(gctx, windowStart, a.loc)
		return err
	})
	g.Go(func() (err error) {
		dailyClicks, err = a.stats.DailyClicks(gctx, windowStart, a.loc)
		return err
	})
	g.Go(func() (err error) {
		linkClicks, err = a.stats.LinkClicks(gctx)
		return err
	})
	if opts.IncludeBreakdowns {
		dims := []entities.ClickDimension{entities.DimensionReferrer, entities.DimensionDevice, entities.DimensionCountry}
		for i, dim := range dims {
			g.Go(func() (err error) {
				byDimension[i], err = a.stats.ClickBreakdown(gctx, dim, windowStart)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Daily = series(windowStart, a.windowDays, dailyLinks, dailyClicks)
	out.TopLinks = topLinks(linkClicks, a.topN, opts.IncludePrivate)
	out.TopDomains = topDomains(linkClicks, a.topN, opts.IncludePrivate)
	if opts.IncludeBreakdowns {
		out.Breakdowns = &Breakdowns{
			Referrers: buckets(byDimension[0]),
			Devices:   buckets(byDimension[1]),
			Countries: buckets(byDimension[2]),
		}
	}
	return out, nil
}

// series zero-fills one point per calendar day starting at start.
func series(start time.Time, days int, links, clicks map[string]int64) []DailyPoint {
	points := make([]DailyPoint, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(repository.DayLayout)
		points = append(points, DailyPoint{Date: key, Links: links[key], Clicks: clicks[key]})
	}
	return points
}

func topLinks(all []entities.LinkClicks, n int, includePrivate bool) []TopLink {
	out := make([]TopLink, 0, n)
	for _, lc := range all {
		if lc.Hidden() && !includePrivate {
			continue
		}
		out = append(out, TopLink{ShortCode: lc.ShortCode, OriginalURL: lc.OriginalURL, Clicks: lc.Clicks})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].ShortCode < out[j].ShortCode
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topDomains(all []entities.LinkClicks, n int, includePrivate bool) []TopDomain {
	totals := make(map[string]int64)
	for _, lc := range all {
		if lc.Hidden() && !includePrivate {
			continue
		}
		if d := entities.DomainOf(lc.OriginalURL); d != "" {
			totals[d] += lc.Clicks
		}
	}

	out := make([]TopDomain, 0, len(totals))
	for d, c := range totals {
		out = append(out, TopDomain{Domain: d, Clicks: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func buckets(counts map[string]int64) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for k, c := range counts {
		out = append(out, Bucket{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
