package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sentiment-lab/internal/aggregator"
	"sentiment-lab/internal/domain"
	"sentiment-lab/internal/observability"
	"sentiment-lab/internal/storage"
)

// Runner supervises sentiment and market sources and fans their streams
// into the aggregator, the price book, and the observation stores.
type Runner struct {
	sources       []SentimentSource
	marketSources []MarketSource
	agg           *aggregator.Aggregator
	obsStore      storage.ObservationStore
	marketStore   storage.MarketStore
	priceBook     *PriceBook
	metrics       *observability.Metrics
	queueCapacity int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	logger        zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Sources       []SentimentSource
	MarketSources []MarketSource
	Aggregator    *aggregator.Aggregator
	ObsStore      storage.ObservationStore // optional, observations persisted when set
	MarketStore   storage.MarketStore      // optional
	PriceBook     *PriceBook               // optional
	Metrics       *observability.Metrics   // optional
	QueueCapacity int                      // Default: 1024
	RetryDelay    time.Duration            // Default: 1s - initial resubscribe delay
	MaxRetryDelay time.Duration            // Default: 30s - resubscribe delay cap
	Logger        zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	queueCapacity := opts.QueueCapacity
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}

	maxRetryDelay := opts.MaxRetryDelay
	if maxRetryDelay <= 0 {
		maxRetryDelay = 30 * time.Second
	}

	return &Runner{
		sources:       opts.Sources,
		marketSources: opts.MarketSources,
		agg:           opts.Aggregator,
		obsStore:      opts.ObsStore,
		marketStore:   opts.MarketStore,
		priceBook:     opts.PriceBook,
		metrics:       opts.Metrics,
		queueCapacity: queueCapacity,
		retryDelay:    retryDelay,
		maxRetryDelay: maxRetryDelay,
		logger:        opts.Logger,
	}
}

// Run starts all source supervisors and consumes their merged streams.
// It blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.agg == nil {
		return errors.New("ingestion: aggregator is required")
	}

	sentimentCh := make(chan sourcedObservation, r.queueCapacity)
	marketCh := make(chan sourcedTick, r.queueCapacity)

	var wg sync.WaitGroup
	for _, src := range r.sources {
		wg.Add(1)
		go func(src SentimentSource) {
			defer wg.Done()
			r.superviseSentiment(ctx, src, sentimentCh)
		}(src)
	}
	for _, src := range r.marketSources {
		wg.Add(1)
		go func(src MarketSource) {
			defer wg.Done()
			r.superviseMarket(ctx, src, marketCh)
		}(src)
	}

	r.logger.Info().
		Int("sentiment_sources", len(r.sources)).
		Int("market_sources", len(r.marketSources)).
		Int("queue_capacity", r.queueCapacity).
		Msg("ingestion runner started")

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.drainSentiment(sentimentCh)
			r.drainMarket(marketCh)
			r.recordQueueDepth(0)
			r.logger.Info().Msg("ingestion runner stopping")
			return ctx.Err()

		case so := <-sentimentCh:
			r.handleObservation(ctx, so)
			r.recordQueueDepth(len(sentimentCh) + len(marketCh))

		case st := <-marketCh:
			r.handleTick(ctx, st)
			r.recordQueueDepth(len(sentimentCh) + len(marketCh))
		}
	}
}

type sourcedObservation struct {
	source string
	obs    *domain.SentimentObservation
}

type sourcedTick struct {
	source string
	tick   *domain.MarketObservation
}

// superviseSentiment keeps one source subscribed, resubscribing with
// exponential backoff when its channel closes.
func (r *Runner) superviseSentiment(ctx context.Context, src SentimentSource, out chan<- sourcedObservation) {
	delay := r.retryDelay
	for {
		if ctx.Err() != nil {
			return
		}

		ch, err := src.Subscribe(ctx)
		if err != nil {
			r.logger.Error().Err(err).Str("source", src.Name()).Msg("subscribe failed")
			if !r.sleep(ctx, delay) {
				return
			}
			delay = r.nextDelay(delay)
			r.recordRestart(src.Name())
			continue
		}

		r.logger.Info().Str("source", src.Name()).Msg("subscribed to sentiment source")
		delay = r.retryDelay

	receive:
		for {
			select {
			case obs, ok := <-ch:
				if !ok {
					break receive
				}
				select {
				case out <- sourcedObservation{source: src.Name(), obs: obs}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Str("source", src.Name()).Msg("sentiment source channel closed, resubscribing")
		r.recordRestart(src.Name())
		if !r.sleep(ctx, delay) {
			return
		}
		delay = r.nextDelay(delay)
	}
}

// superviseMarket mirrors superviseSentiment for market feeds.
func (r *Runner) superviseMarket(ctx context.Context, src MarketSource, out chan<- sourcedTick) {
	delay := r.retryDelay
	for {
		if ctx.Err() != nil {
			return
		}

		ch, err := src.Subscribe(ctx)
		if err != nil {
			r.logger.Error().Err(err).Str("source", src.Name()).Msg("subscribe failed")
			if !r.sleep(ctx, delay) {
				return
			}
			delay = r.nextDelay(delay)
			r.recordRestart(src.Name())
			continue
		}

		r.logger.Info().Str("source", src.Name()).Msg("subscribed to market source")
		delay = r.retryDelay

	receive:
		for {
			select {
			case tick, ok := <-ch:
				if !ok {
					break receive
				}
				select {
				case out <- sourcedTick{source: src.Name(), tick: tick}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		r.logger.Warn().Str("source", src.Name()).Msg("market source channel closed, resubscribing")
		r.recordRestart(src.Name())
		if !r.sleep(ctx, delay) {
			return
		}
		delay = r.nextDelay(delay)
	}
}

// handleObservation validates one observation, feeds the aggregator and
// optionally persists it. Duplicates from replaying feeds are tolerated.
func (r *Runner) handleObservation(ctx context.Context, so sourcedObservation) {
	if !so.obs.Validate() {
		r.logger.Debug().Str("source", so.source).Msg("dropping malformed observation")
		if r.metrics != nil {
			r.metrics.ObservationsDropped.WithLabelValues(so.source).Inc()
		}
		return
	}

	r.agg.Add(*so.obs)

	if r.obsStore != nil {
		if err := r.obsStore.Insert(ctx, so.obs); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				r.logger.Error().Err(err).Str("source", so.source).Msg("storing observation failed")
				if r.metrics != nil {
					r.metrics.DBQueryErrors.WithLabelValues("observations", "insert").Inc()
				}
			}
		} else if r.metrics != nil {
			r.metrics.ObservationsStored.Inc()
		}
	}

	if r.metrics != nil {
		r.metrics.ObservationsProcessed.WithLabelValues(so.source).Inc()
		r.metrics.LastSuccessfulIngestion.Set(float64(time.Now().Unix()))
	}
}

// handleTick validates one market tick, updates the price book and
// optionally persists it.
func (r *Runner) handleTick(ctx context.Context, st sourcedTick) {
	if !st.tick.Validate() {
		r.logger.Debug().Str("source", st.source).Msg("dropping malformed market tick")
		if r.metrics != nil {
			r.metrics.ObservationsDropped.WithLabelValues(st.source).Inc()
		}
		return
	}

	if r.priceBook != nil {
		r.priceBook.Update(st.tick.Symbol, st.tick.Price)
	}

	if r.marketStore != nil {
		if err := r.marketStore.Insert(ctx, st.tick); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				r.logger.Error().Err(err).Str("source", st.source).Msg("storing market tick failed")
				if r.metrics != nil {
					r.metrics.DBQueryErrors.WithLabelValues("market", "insert").Inc()
				}
			}
		}
	}

	if r.metrics != nil {
		r.metrics.MarketTicksProcessed.Inc()
	}
}

// drainSentiment processes whatever is left in the queue on shutdown.
func (r *Runner) drainSentiment(ch chan sourcedObservation) {
	for {
		select {
		case so := <-ch:
			r.handleObservation(context.Background(), so)
		default:
			return
		}
	}
}

func (r *Runner) drainMarket(ch chan sourcedTick) {
	for {
		select {
		case st := <-ch:
			r.handleTick(context.Background(), st)
		default:
			return
		}
	}
}

func (r *Runner) recordQueueDepth(n int) {
	if r.metrics != nil {
		r.metrics.IngestQueueDepth.Set(float64(n))
	}
}

func (r *Runner) recordRestart(source string) {
	if r.metrics != nil {
		r.metrics.SourceRestarts.WithLabelValues(source).Inc()
	}
}

// sleep waits for the delay or context cancellation, reporting whether the
// caller should keep going.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Runner) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > r.maxRetryDelay {
		d = r.maxRetryDelay
	}
	return d
}
