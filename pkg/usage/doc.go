// Package usage implements the usage reconciliation and aggregation engine.
//
// # Overview
//
// Raw usage events live in one table per product line, each with its own
// independently-evolved field conventions. The engine fans out concurrent
// scans across the applicable sources, normalizes the heterogeneous records
// into one canonical shape, reconciles owner identity across sources via the
// identity directory, and folds the result into the derived views the
// reporting API serves: totals, per-dimension breakdowns, per-user summaries,
// trends, and rankings.
//
// # Partial failure
//
// A single source failing never aborts a query. Each source's outcome is
// captured in a SourceStatus alongside its (possibly empty) records, and
// degraded responses carry those annotations. Identity lookups degrade the
// same way, substituting directory.Fallback per owner. The only hard failure
// is a request for an unknown source id.
//
// # Order independence
//
// Concurrent scans and lookups complete in no particular order, so every fold
// here is associative and commutative: aggregating a record set equals
// merging the aggregates of any partition of it. Ranked views use stable
// sorts over deterministic, first-appearance bucket order.
//
// # Usage Example
//
//	svc := usage.NewService(usage.ServiceConfig{
//		Registry:  registry,
//		Scanner:   scanner,
//		Directory: dir,
//		Logger:    logger,
//	})
//	report, err := svc.Overview(ctx, usage.AllSources(), usage.Unbounded())
package usage
