package usage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/sources"
)

// defaultScanWorkers bounds concurrent table scans.
const defaultScanWorkers = 4

// tableRead identifies one table scan of the fan-out.
type tableRead struct {
	desc     sources.Descriptor
	location string
	alt      bool
}

// reads expands a scope into the table scans it requires. The only error is
// a caller/config mismatch: an unknown source id, or an alt-edition request
// against a source that has none.
func (s *Service) reads(scope Scope) ([]tableRead, error) {
	var descs []sources.Descriptor
	if scope.SourceID == "" {
		descs = s.registry.List()
	} else {
		desc, err := s.registry.Get(scope.SourceID)
		if err != nil {
			return nil, err
		}
		descs = []sources.Descriptor{desc}
	}

	var reads []tableRead
	for _, desc := range descs {
		if scope.AltOnly {
			if !desc.HasAlt() {
				return nil, fmt.Errorf("%w: source %q has no alternate edition", sources.ErrUnknownSource, desc.ID)
			}
		} else {
			reads = append(reads, tableRead{desc: desc, location: desc.PrimaryLocation})
		}
		if desc.HasAlt() {
			reads = append(reads, tableRead{desc: desc, location: desc.AltLocation, alt: true})
		}
	}
	return reads, nil
}

// Collect fans out one scan per applicable table concurrently and waits for
// all of them. A single table's failure is captured in its SourceResult and
// never aborts the rest; this is the engine's central partial-failure
// contract. Result order follows the catalog, but callers must not rely on
// cross-source ordering semantics.
func (s *Service) Collect(ctx context.Context, scope Scope, tf TimeFilter) ([]SourceResult, error) {
	reads, err := s.reads(scope)
	if err != nil {
		return nil, err
	}

	results := make([]SourceResult, len(reads))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.scanWorkers)

	for i, read := range reads {
		i, read := i, read
		eg.Go(func() error {
			result := SourceResult{
				SourceID: read.desc.ID,
				Location: read.location,
				Alt:      read.alt,
			}

			start := time.Now()
			scanResult, scanErr := s.scanner.Scan(ctx, read.location, tf.scanFilter(read.desc.LayoutFor(read.alt)))
			s.recordScan(read.desc.ID, time.Since(start), scanErr)

			if scanErr != nil {
				result.Err = scanErr
				observability.UpdateLoggerWithTraceContext(ctx, s.log).
					WithError(scanErr).
					WithField("source", read.desc.ID).
					WithField("location", read.location).
					Warn("source scan failed, continuing with remaining sources")
			} else {
				result.Records = scanResult.Items
			}

			results[i] = result
			return nil
		})
	}

	// Pure barrier: workers capture failures instead of returning them.
	_ = eg.Wait()

	return results, nil
}

func (s *Service) recordScan(sourceID string, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ScansTotal.WithLabelValues(sourceID, status).Inc()
	s.metrics.ScanDuration.WithLabelValues(sourceID).Observe(elapsed.Seconds())
}
