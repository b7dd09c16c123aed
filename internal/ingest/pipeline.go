// Package ingest moves raw messages from a source into a store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tweetarchive/internal/config"
	"tweetarchive/internal/logging"
	"tweetarchive/internal/metrics"
	"tweetarchive/internal/source"
	"tweetarchive/internal/tweet"
)

// Saver is the slice of store.Store the pipeline writes through.
type Saver interface {
	Save(ctx context.Context, rec tweet.Record, src tweet.Message) error
}

// Stats summarizes one Run.
type Stats struct {
	Received   int
	Saved      int
	Rejected   int
	Duplicates int
}

// Pipeline decodes, builds and saves messages one at a time.
type Pipeline struct {
	builder *tweet.Builder
	store   Saver
	limiter *rate.Limiter
	dedup   *Dedup
	now     func() time.Time
}

func New(b *tweet.Builder, s Saver, cfg config.IngestConfig) *Pipeline {
	p := &Pipeline{builder: b, store: s, now: time.Now}
	if cfg.WritesPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), burst)
	}
	if cfg.Dedup {
		p.dedup = NewDedup(cfg.DedupCapacity, cfg.DedupFalsePos)
	}
	return p
}

// errRejected marks messages that can never be stored.
var errRejected = errors.New("message rejected")

// Handle stores one raw message. Messages that fail to decode or build are
// reported with errRejected; storage errors are returned as is.
func (p *Pipeline) Handle(ctx context.Context, body []byte) (saved bool, err error) {
	msg, err := tweet.DecodeMessage(body)
	if err != nil {
		metrics.IncBuildError("decode")
		return false, fmt.Errorf("%w: %v", errRejected, err)
	}
	rec, err := p.builder.Build(msg)
	if err != nil {
		metrics.IncBuildError(buildReason(err))
		return false, fmt.Errorf("%w: %w", errRejected, err)
	}
	metrics.RecordsBuilt.Inc()
	if created, ok := tweet.IDTime(rec.TweetID); ok {
		metrics.ObserveLag(created, p.now())
	}
	if p.dedup != nil && p.dedup.Seen(rec.TweetID) {
		metrics.DuplicatesSkipped.Inc()
		logging.Debug("duplicate_skipped", map[string]any{"tweet_id": rec.TweetID})
		return false, nil
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}
	if err := p.store.Save(ctx, rec, msg); err != nil {
		if errors.Is(err, tweet.ErrInvalidRecord) {
			metrics.IncBuildError("invalid_record")
			return false, fmt.Errorf("%w: %w", errRejected, err)
		}
		return false, err
	}
	if p.dedup != nil {
		p.dedup.Add(rec.TweetID)
	}
	metrics.RecordsSaved.Inc()
	return true, nil
}

// Run drains src until it closes or ctx ends. Rejected messages are
// dropped; the first storage error requeues its delivery and stops the run.
// A source that ends on an error fails the run.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (Stats, error) {
	var st Stats
	runID := uuid.NewString()
	deliveries, err := src.Deliveries(ctx)
	if err != nil {
		return st, err
	}
	logging.Info("ingest_start", map[string]any{"run": runID})
	for d := range deliveries {
		st.Received++
		saved, err := p.Handle(ctx, d.Body)
		switch {
		case err == nil:
			if saved {
				st.Saved++
			} else {
				st.Duplicates++
			}
			if err := d.Ack(); err != nil {
				return st, fmt.Errorf("ack: %w", err)
			}
		case errors.Is(err, errRejected):
			st.Rejected++
			logging.Warn("message_rejected", map[string]any{"run": runID, "error": err.Error()})
			if err := d.Nack(false); err != nil {
				return st, fmt.Errorf("nack: %w", err)
			}
		default:
			_ = d.Nack(true)
			logging.Error("ingest_store_error", map[string]any{"run": runID, "error": err.Error()})
			return st, err
		}
	}
	logging.Info("ingest_done", map[string]any{"run": runID, "received": st.Received, "saved": st.Saved,
		"rejected": st.Rejected, "duplicates": st.Duplicates})
	if err := src.Err(); err != nil {
		logging.Error("ingest_source_error", map[string]any{"run": runID, "error": err.Error()})
		return st, err
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}
	return st, nil
}

func buildReason(err error) string {
	switch {
	case errors.Is(err, tweet.ErrMissingField):
		return "missing_field"
	case errors.Is(err, tweet.ErrInvalidField):
		return "invalid_field"
	case errors.Is(err, tweet.ErrParse):
		return "parse"
	}
	return "other"
}
