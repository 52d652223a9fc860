package usage

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tally/pkg/directory"
)

// defaultLookupWorkers bounds concurrent identity lookups; the directory is
// rate limited.
const defaultLookupWorkers = 8

// Reconciler maps internal owner ids to external identities and merges usage
// attributed to the same person across sources.
type Reconciler struct {
	dir     directory.Directory
	workers int
}

// NewReconciler creates a reconciler over the given directory. workers bounds
// lookup concurrency; zero means the default.
func NewReconciler(dir directory.Directory, workers int) *Reconciler {
	if workers <= 0 {
		workers = defaultLookupWorkers
	}
	return &Reconciler{dir: dir, workers: workers}
}

// Resolve looks up each distinct owner id concurrently. Resolution is
// best-effort: a failed or unknown lookup yields directory.Fallback for that
// id, never an error, so identity trouble cannot block aggregate totals. The
// second return counts fallback substitutions for observability.
func (r *Reconciler) Resolve(ctx context.Context, ownerIDs []string) (map[string]directory.Identity, int) {
	distinct := make([]string, 0, len(ownerIDs))
	seen := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	resolved := make(map[string]directory.Identity, len(distinct))
	var mu sync.Mutex
	var fallbacks int

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)

	for _, id := range distinct {
		id := id
		eg.Go(func() error {
			identity, err := r.dir.Lookup(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || identity == nil {
				resolved[id] = directory.Fallback(id)
				fallbacks++
			} else {
				resolved[id] = *identity
			}
			return nil
		})
	}

	// Workers never return errors; Wait is a pure barrier.
	_ = eg.Wait()

	return resolved, fallbacks
}

// UserUsageSummary is all usage attributed to one reconciled person, keyed by
// email. Multiple internal owner ids fold into one summary when the
// directory maps them to the same address.
type UserUsageSummary struct {
	Email        string             `json:"email"`
	Identity     directory.Identity `json:"identity"`
	OwnerIDs     []string           `json:"owner_ids"`
	TokensIn     int64              `json:"tokens_in"`
	TokensOut    int64              `json:"tokens_out"`
	TokensTotal  int64              `json:"tokens_total"`
	MessageCount int64              `json:"message_count"`
	RecordCount  int64              `json:"record_count"`

	// Breakdown groups the user's records by (source, dimension).
	Breakdown []Bucket `json:"breakdown"`

	// Records retains the contributing canonical records for traceability.
	Records []CanonicalRecord `json:"records,omitempty"`
}

// MergeByEmail groups canonical records by resolved email. Unattributable
// records are skipped; owner ids missing from identities degrade to the
// fallback identity. Re-merging already-merged output is a no-op.
func MergeByEmail(records []CanonicalRecord, identities map[string]directory.Identity) []UserUsageSummary {
	index := make(map[string]int)
	var summaries []*UserUsageSummary

	for _, rec := range records {
		if rec.OwnerID == "" {
			continue
		}
		identity, ok := identities[rec.OwnerID]
		if !ok {
			identity = directory.Fallback(rec.OwnerID)
		}

		i, exists := index[identity.Email]
		if !exists {
			i = len(summaries)
			index[identity.Email] = i
			summaries = append(summaries, &UserUsageSummary{
				Email:    identity.Email,
				Identity: identity,
			})
		}

		s := summaries[i]
		// Prefer a directory-backed identity over an earlier fallback for
		// the merged view.
		if s.Identity.AccountStatus == directory.AccountStatusUnknown &&
			identity.AccountStatus != directory.AccountStatusUnknown {
			s.Identity = identity
		}

		s.Records = append(s.Records, rec)
		s.TokensIn += rec.TokensIn
		s.TokensOut += rec.TokensOut
		s.TokensTotal += rec.TokensTotal
		s.MessageCount += rec.MessageCount
		s.RecordCount++
	}

	out := make([]UserUsageSummary, len(summaries))
	for i, s := range summaries {
		s.OwnerIDs = distinctOwners(s.Records)
		s.Breakdown = Aggregate(s.Records, GroupBy{Source: true, Dimension: true})
		out[i] = *s
	}

	// Heaviest users first; email breaks ties for determinism.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TokensTotal != out[j].TokensTotal {
			return out[i].TokensTotal > out[j].TokensTotal
		}
		return out[i].Email < out[j].Email
	})

	return out
}

func distinctOwners(records []CanonicalRecord) []string {
	seen := make(map[string]struct{})
	var owners []string
	for _, rec := range records {
		if _, dup := seen[rec.OwnerID]; dup {
			continue
		}
		seen[rec.OwnerID] = struct{}{}
		owners = append(owners, rec.OwnerID)
	}
	sort.Strings(owners)
	return owners
}
