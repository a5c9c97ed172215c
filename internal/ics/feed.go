package ics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"courtboard/internal/config"
	appLog "courtboard/internal/log"
	"courtboard/internal/model"
)

// blockNamespace seeds the name-based UUIDs of imported blocks so the same
// feed instance keeps its ID across refreshes.
var blockNamespace = uuid.MustParse("6f1c3c3e-8d0a-4f5e-9a53-2b1f0c7d9e41")

// BlockOptions controls how feed instances become court blocks.
type BlockOptions struct {
	Feed        config.FeedConfig
	CourtCount  int
	WetKeywords []string
}

// ToBlocks maps instances onto court blocks. An instance lands on the
// court named in the event (exported calendars), else on the feed's
// courts, else on every court.
func ToBlocks(instances []Instance, opts BlockOptions) []model.Block {
	allCourts := make([]int, 0, opts.CourtCount)
	for n := 1; n <= opts.CourtCount; n++ {
		allCourts = append(allCourts, n)
	}

	out := make([]model.Block, 0, len(instances))
	for _, inst := range instances {
		ev := inst.Event
		courts := opts.Feed.Courts
		switch {
		case ev.Court > 0:
			courts = []int{ev.Court}
		case len(courts) == 0:
			courts = allCourts
		}

		reason := strings.TrimSpace(ev.Summary)
		if reason == "" {
			reason = opts.Feed.Name
		}
		wet := opts.Feed.Wet || ev.Wet || hasKeyword(reason, opts.WetKeywords)

		for _, court := range courts {
			key := fmt.Sprintf("%s|%s|%s|%d", opts.Feed.ID, ev.UID, inst.Start.UTC().Format(time.RFC3339), court)
			out = append(out, model.Block{
				ID:             uuid.NewSHA1(blockNamespace, []byte(key)).String(),
				CourtNumber:    court,
				StartTime:      inst.Start,
				EndTime:        inst.End,
				Reason:         reason,
				IsWetCourt:     wet,
				IsRecurring:    ev.RawRRule != "",
				RecurrenceRule: ev.RawRRule,
				Source:         opts.Feed.ID,
			})
		}
	}
	return out
}

func hasKeyword(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// BlockSink receives the blocks of one feed, replacing its previous ones.
type BlockSink interface {
	ReplaceSource(source string, blocks []model.Block) int
}

// Syncer imports every configured feed into a BlockSink.
type Syncer struct {
	cfg     *config.Config
	fetcher *Fetcher
	sink    BlockSink
	now     func() time.Time
}

// NewSyncer builds a Syncer using cfg's feeds, cache and horizon.
func NewSyncer(cfg *config.Config, fetcher *Fetcher, sink BlockSink) *Syncer {
	if fetcher == nil {
		fetcher = NewFetcher(cfg.CacheDir, nil)
	}
	return &Syncer{cfg: cfg, fetcher: fetcher, sink: sink, now: time.Now}
}

// Sync fetches, expands and stores every feed. A feed that cannot be
// fetched or parsed keeps its previous blocks; its error is returned
// alongside the others.
func (s *Syncer) Sync(ctx context.Context) error {
	if len(s.cfg.Feeds) == 0 {
		return nil
	}

	loc := s.cfg.Location()
	now := s.now().In(loc)
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, s.cfg.HorizonDays)

	sources := make([]Source, 0, len(s.cfg.Feeds))
	feeds := make(map[string]config.FeedConfig, len(s.cfg.Feeds))
	for _, f := range s.cfg.Feeds {
		sources = append(sources, Source{ID: f.ID, URL: f.URL})
		feeds[f.ID] = f
	}

	results, fetchErr := s.fetcher.FetchAll(ctx, sources)
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body, loc)
		if err != nil {
			fetchErr = errors.Join(fetchErr, fmt.Errorf("feed %s: %w", res.Source.ID, err))
			continue
		}
		expanded, err := Expand(parsed, ExpandConfig{Location: loc, RangeStart: from, RangeEnd: to})
		if err != nil {
			fetchErr = errors.Join(fetchErr, fmt.Errorf("feed %s: %w", res.Source.ID, err))
			continue
		}
		blocks := ToBlocks(expanded.Instances, BlockOptions{
			Feed:        feeds[res.Source.ID],
			CourtCount:  s.cfg.Courts,
			WetKeywords: s.cfg.WetKeywords,
		})
		n := s.sink.ReplaceSource(res.Source.ID, blocks)
		appLog.Info("feed synced", "id", res.Source.ID, "instances", len(expanded.Instances), "blocks", n, "from_cache", res.FromCache)
	}
	return fetchErr
}
