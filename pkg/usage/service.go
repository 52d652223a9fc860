package usage

import (
	"context"
	"sort"
	"time"

	"github.com/platinummonkey/tally/pkg/directory"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
)

// Service is the aggregation query interface exposed to the handler layer.
// It owns no mutable state; every query recomputes from fresh reads.
type Service struct {
	registry   *sources.Registry
	scanner    scan.ItemScanner
	reconciler *Reconciler
	log        *observability.Logger
	metrics    *observability.Metrics

	scanWorkers int
	now         func() time.Time
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Registry  *sources.Registry
	Scanner   scan.ItemScanner
	Directory directory.Directory
	Logger    *observability.Logger
	Metrics   *observability.Metrics

	// ScanWorkers bounds concurrent table scans; zero means the default.
	ScanWorkers int
	// LookupWorkers bounds concurrent identity lookups; zero means the
	// default.
	LookupWorkers int
}

// NewService creates the engine facade.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	workers := cfg.ScanWorkers
	if workers <= 0 {
		workers = defaultScanWorkers
	}
	return &Service{
		registry:    cfg.Registry,
		scanner:     cfg.Scanner,
		reconciler:  NewReconciler(cfg.Directory, cfg.LookupWorkers),
		log:         logger,
		metrics:     cfg.Metrics,
		scanWorkers: workers,
		now:         time.Now,
	}
}

// Sources lists the catalog.
func (s *Service) Sources() []sources.Descriptor {
	return s.registry.List()
}

// gather runs collect → normalize → post-filter and produces the canonical
// record set plus per-source status annotations.
func (s *Service) gather(ctx context.Context, scope Scope, tf TimeFilter) ([]CanonicalRecord, []SourceStatus, error) {
	results, err := s.Collect(ctx, scope, tf)
	if err != nil {
		return nil, nil, err
	}

	var records []CanonicalRecord
	statuses := make([]SourceStatus, 0, len(results))

	for _, result := range results {
		status := SourceStatus{
			SourceID: result.SourceID,
			Location: result.Location,
			Alt:      result.Alt,
		}
		if result.Err != nil {
			status.Failed = true
			status.Error = result.Err.Error()
			statuses = append(statuses, status)
			continue
		}

		desc, descErr := s.registry.Get(result.SourceID)
		if descErr != nil {
			// Collect only reads catalog sources; this cannot happen.
			return nil, nil, descErr
		}

		unattributable := 0
		for _, item := range result.Records {
			rec := Normalize(item, desc, result.Alt)
			if !tf.includes(rec.Date) {
				continue
			}
			if rec.OwnerID == "" {
				unattributable++
			}
			records = append(records, rec)
			status.Records++
		}

		// Unattributable records stay in totals but are invisible to
		// owner-centric views; keep them observable.
		if unattributable > 0 {
			status.Dropped = unattributable
			if s.metrics != nil {
				s.metrics.UnattributableRecords.WithLabelValues(result.SourceID).Add(float64(unattributable))
			}
			s.log.WithField("source", result.SourceID).
				WithField("count", unattributable).
				Debug("records without resolvable owner")
		}

		statuses = append(statuses, status)
	}

	return records, statuses, nil
}

// OverviewReport is the top-level usage view.
type OverviewReport struct {
	Totals   Bucket         `json:"totals"`
	BySource []Bucket       `json:"by_source"`
	Sources  []SourceStatus `json:"sources"`
}

// Overview computes combined totals plus a per-source breakdown.
func (s *Service) Overview(ctx context.Context, scope Scope, tf TimeFilter) (*OverviewReport, error) {
	records, statuses, err := s.gather(ctx, scope, tf)
	if err != nil {
		return nil, err
	}
	return &OverviewReport{
		Totals:   Totals(records),
		BySource: Aggregate(records, GroupBy{Source: true}),
		Sources:  statuses,
	}, nil
}

// BreakdownReport is a grouped view over one query.
type BreakdownReport struct {
	GroupedBy []string       `json:"grouped_by"`
	Buckets   []Bucket       `json:"buckets"`
	Sources   []SourceStatus `json:"sources"`
}

// Breakdown aggregates by an arbitrary grouping combination.
func (s *Service) Breakdown(ctx context.Context, scope Scope, tf TimeFilter, by GroupBy) (*BreakdownReport, error) {
	records, statuses, err := s.gather(ctx, scope, tf)
	if err != nil {
		return nil, err
	}
	return &BreakdownReport{
		GroupedBy: groupByNames(by),
		Buckets:   Aggregate(records, by),
		Sources:   statuses,
	}, nil
}

// UsersReport is the reconciled per-user view.
type UsersReport struct {
	Users   []UserUsageSummary `json:"users"`
	Sources []SourceStatus     `json:"sources"`
}

// Users reconciles owner identity and merges usage per email.
func (s *Service) Users(ctx context.Context, scope Scope, tf TimeFilter) (*UsersReport, error) {
	records, statuses, err := s.gather(ctx, scope, tf)
	if err != nil {
		return nil, err
	}

	identities := s.resolveFor(ctx, records)

	return &UsersReport{
		Users:   MergeByEmail(records, identities),
		Sources: statuses,
	}, nil
}

// RankedOwner is one row of a top-N ranking, with the owner's reconciled
// email attached for display.
type RankedOwner struct {
	OwnerID string `json:"owner_id"`
	Email   string `json:"email"`
	Value   int64  `json:"value"`
	Bucket  Bucket `json:"bucket"`
}

// TopReport is the ranked-owners view.
type TopReport struct {
	Measure Measure        `json:"measure"`
	Owners  []RankedOwner  `json:"owners"`
	Sources []SourceStatus `json:"sources"`
}

// TopOwners ranks owners by measure and resolves identities for the
// surviving rows only.
func (s *Service) TopOwners(ctx context.Context, scope Scope, tf TimeFilter, measure Measure, n int) (*TopReport, error) {
	records, statuses, err := s.gather(ctx, scope, tf)
	if err != nil {
		return nil, err
	}

	top := TopN(Aggregate(records, GroupBy{Owner: true}), measure, n)

	ownerIDs := make([]string, 0, len(top))
	for _, b := range top {
		ownerIDs = append(ownerIDs, b.Key.OwnerID)
	}
	identities, fallbacks := s.reconciler.Resolve(ctx, ownerIDs)
	s.recordFallbacks(fallbacks)

	owners := make([]RankedOwner, 0, len(top))
	for _, b := range top {
		identity, ok := identities[b.Key.OwnerID]
		if !ok {
			identity = directory.Fallback(b.Key.OwnerID)
		}
		owners = append(owners, RankedOwner{
			OwnerID: b.Key.OwnerID,
			Email:   identity.Email,
			Value:   measureOf(b, measure),
			Bucket:  b,
		})
	}

	return &TopReport{Measure: measure, Owners: owners, Sources: statuses}, nil
}

// TrendReport is an ordered time-series view.
type TrendReport struct {
	Points  []TrendPoint   `json:"points"`
	Sources []SourceStatus `json:"sources,omitempty"`
}

// DailyTrend builds the daily series for one query.
func (s *Service) DailyTrend(ctx context.Context, scope Scope, tf TimeFilter) (*TrendReport, error) {
	records, statuses, err := s.gather(ctx, scope, tf)
	if err != nil {
		return nil, err
	}
	return &TrendReport{
		Points:  BuildDaily(records),
		Sources: statuses,
	}, nil
}

// MonthlyTrend runs one aggregate query per trailing calendar month, oldest
// first, ending at the current month. Each month is an independent query;
// the stores' only per-source filter primitive is the substring month token,
// so a rolling window over one big fetch is not available.
func (s *Service) MonthlyTrend(ctx context.Context, scope Scope, monthsBack int) (*TrendReport, error) {
	points := make([]TrendPoint, 0, monthsBack)

	for _, month := range trailingMonths(s.now().UTC(), monthsBack) {
		tf, err := Month(month)
		if err != nil {
			return nil, err
		}
		records, _, err := s.gather(ctx, scope, tf)
		if err != nil {
			return nil, err
		}

		totals := Totals(records)
		points = append(points, TrendPoint{
			Date:         month,
			TokensIn:     totals.TokensIn,
			TokensOut:    totals.TokensOut,
			TokensTotal:  totals.TokensTotal,
			MessageCount: totals.MessageCount,
			ActiveOwners: totals.DistinctOwners,
		})
	}

	applyDeltas(points)
	return &TrendReport{Points: points}, nil
}

// SignupPoint is one month of directory signups.
type SignupPoint struct {
	Month      string `json:"month"`
	Signups    int    `json:"signups"`
	Cumulative int    `json:"cumulative"`
}

// SignupTrend counts new directory entries per trailing month by enumerating
// the whole directory rather than issuing individual lookups.
func (s *Service) SignupTrend(ctx context.Context, monthsBack int) ([]SignupPoint, error) {
	identities, err := s.reconciler.dir.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]int)
	for _, identity := range identities {
		if identity.CreatedAt == nil {
			continue
		}
		byMonth[identity.CreatedAt.UTC().Format("2006-01")]++
	}

	months := trailingMonths(s.now().UTC(), monthsBack)
	points := make([]SignupPoint, 0, len(months))
	cumulative := 0
	for _, month := range months {
		cumulative += byMonth[month]
		points = append(points, SignupPoint{
			Month:      month,
			Signups:    byMonth[month],
			Cumulative: cumulative,
		})
	}
	return points, nil
}

// resolveFor resolves identities for every distinct owner in records.
func (s *Service) resolveFor(ctx context.Context, records []CanonicalRecord) map[string]directory.Identity {
	ownerIDs := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.OwnerID != "" {
			ownerIDs = append(ownerIDs, rec.OwnerID)
		}
	}
	identities, fallbacks := s.reconciler.Resolve(ctx, ownerIDs)
	s.recordFallbacks(fallbacks)
	return identities
}

func (s *Service) recordFallbacks(fallbacks int) {
	if fallbacks == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.IdentityFallbacks.Add(float64(fallbacks))
	}
	s.log.WithField("count", fallbacks).Debug("identity lookups degraded to fallback")
}

func groupByNames(by GroupBy) []string {
	var names []string
	if by.Source {
		names = append(names, "source")
	}
	if by.Dimension {
		names = append(names, "dimension")
	}
	if by.Owner {
		names = append(names, "owner")
	}
	if by.Date {
		names = append(names, "date")
	}
	sort.Strings(names)
	return names
}
