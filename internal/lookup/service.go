package lookup

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/user00265/ctyresolve/internal/dxcc"
	"github.com/user00265/ctyresolve/internal/logging"
	"github.com/user00265/ctyresolve/internal/metrics"
)

// ErrNoDataset is returned when lookups arrive before a country file is loaded.
var ErrNoDataset = errors.New("no country file loaded")

// ResultCache is a cache shared between instances, such as Redis.
type ResultCache interface {
	Get(ctx context.Context, version, call string) (dxcc.Result, bool, error)
	Set(ctx context.Context, version, call string, res dxcc.Result) error
}

// Options configures a Service.
type Options struct {
	// CacheSize is the in-process LRU capacity; 0 disables it.
	CacheSize int
	CacheTTL  time.Duration
	// Workers bounds concurrent resolutions in LookupBatch.
	Workers int
	// Callsign shapes for the portable-call rules; nil keeps the defaults.
	CallPattern     *regexp.Regexp
	DomesticPattern *regexp.Regexp
}

// Info is a resolved callsign as served by the API.
type Info struct {
	Callsign string `json:"callsign"`
	dxcc.Result
	Flag string `json:"flag"`
}

// Status describes the published dataset.
type Status struct {
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
	ExactCalls int       `json:"exact_calls"`
	Prefixes   int       `json:"prefixes"`
}

type dataset struct {
	resolver *dxcc.Resolver
	status   Status
}

// Service answers callsign lookups against the current dataset. Datasets
// are swapped atomically, so lookups never see a half-loaded index.
type Service struct {
	opts    Options
	remote  ResultCache
	local   *expirable.LRU[string, Info]
	current atomic.Pointer[dataset]
}

// NewService returns a Service with no dataset. remote may be nil.
func NewService(opts Options, remote ResultCache) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	s := &Service{opts: opts, remote: remote}
	if opts.CacheSize > 0 {
		s.local = expirable.NewLRU[string, Info](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// SetIndex publishes a new dataset and drops locally cached answers.
func (s *Service) SetIndex(ix *dxcc.Index, version string) {
	exact, prefixes := ix.Len()
	s.current.Store(&dataset{
		resolver: dxcc.NewResolver(ix, dxcc.WithCallPatterns(s.opts.CallPattern, s.opts.DomesticPattern)),
		status: Status{
			Version:    version,
			LoadedAt:   time.Now().UTC(),
			ExactCalls: exact,
			Prefixes:   prefixes,
		},
	})
	if s.local != nil {
		s.local.Purge()
	}
	metrics.DatasetEntries.WithLabelValues("exact").Set(float64(exact))
	metrics.DatasetEntries.WithLabelValues("prefix").Set(float64(prefixes))
	logging.Notice("Published country file %s: %d exact calls, %d prefixes.", version, exact, prefixes)
}

// Status returns the published dataset, false when none is loaded.
func (s *Service) Status() (Status, bool) {
	ds := s.current.Load()
	if ds == nil {
		return Status{}, false
	}
	return ds.status, true
}

// Lookup resolves one callsign. It reports false only when no dataset is
// loaded; an unresolvable call is a successful lookup with an Unknown entity.
func (s *Service) Lookup(ctx context.Context, raw string) (Info, bool) {
	ds := s.current.Load()
	if ds == nil {
		return Info{}, false
	}
	return s.lookup(ctx, ds, raw), true
}

func (s *Service) lookup(ctx context.Context, ds *dataset, raw string) Info {
	call := strings.ToUpper(strings.TrimSpace(raw))
	ver := ds.status.Version
	key := ver + ":" + call

	if s.local != nil {
		if info, ok := s.local.Get(key); ok {
			metrics.LookupsTotal.WithLabelValues("local").Inc()
			return info
		}
	}

	if s.remote != nil {
		res, ok, err := s.remote.Get(ctx, ver, call)
		switch {
		case err != nil:
			metrics.RedisErrorsTotal.Inc()
			logging.Debug("Result cache read for %s failed: %v", call, err)
		case ok:
			info := newInfo(call, res)
			s.remember(key, info)
			metrics.LookupsTotal.WithLabelValues("redis").Inc()
			return info
		}
	}

	start := time.Now()
	res := ds.resolver.Resolve(call)
	metrics.ResolveDurationUs.Observe(float64(time.Since(start).Microseconds()))
	metrics.LookupsTotal.WithLabelValues("resolved").Inc()
	if res.IsUnknown() {
		metrics.UnknownResultsTotal.Inc()
	}

	info := newInfo(call, res)
	s.remember(key, info)
	if s.remote != nil {
		if err := s.remote.Set(ctx, ver, call, res); err != nil {
			metrics.RedisErrorsTotal.Inc()
			logging.Debug("Result cache write for %s failed: %v", call, err)
		}
	}
	return info
}

func (s *Service) remember(key string, info Info) {
	if s.local != nil {
		s.local.Add(key, info)
	}
}

// LookupBatch resolves calls concurrently, bounded by Options.Workers. The
// result keeps the input order. All calls use the dataset current at entry.
func (s *Service) LookupBatch(ctx context.Context, calls []string) ([]Info, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, ErrNoDataset
	}
	metrics.BatchSize.Observe(float64(len(calls)))

	out := make([]Info, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, call := range calls {
		if gctx.Err() != nil {
			break
		}
		i, call := i, call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.lookup(gctx, ds, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func newInfo(call string, res dxcc.Result) Info {
	return Info{
		Callsign: call,
		Result:   res,
		Flag:     dxcc.Flag(res.Prefix),
	}
}
