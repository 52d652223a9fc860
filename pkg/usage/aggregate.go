package usage

// GroupBy selects the grouping dimensions of an aggregation.
type GroupBy struct {
	Source    bool
	Dimension bool
	Owner     bool
	Date      bool
}

// BucketKey is the grouping key of one aggregate bucket. Fields outside the
// active GroupBy stay empty.
type BucketKey struct {
	SourceID  string `json:"source_id,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
	Date      string `json:"date,omitempty"`
}

// Bucket is a grouped sum of canonical records. Buckets merge by adding
// counters and unioning owner sets; the fold is associative and commutative,
// which is what makes concurrent, order-independent collection safe.
type Bucket struct {
	Key            BucketKey `json:"key"`
	TokensIn       int64     `json:"tokens_in"`
	TokensOut      int64     `json:"tokens_out"`
	TokensTotal    int64     `json:"tokens_total"`
	MessageCount   int64     `json:"message_count"`
	RecordCount    int64     `json:"record_count"`
	DistinctOwners int       `json:"distinct_owners"`

	owners map[string]struct{}
}

func newBucket(key BucketKey) *Bucket {
	return &Bucket{Key: key, owners: make(map[string]struct{})}
}

func (b *Bucket) add(rec CanonicalRecord) {
	b.TokensIn += rec.TokensIn
	b.TokensOut += rec.TokensOut
	b.TokensTotal += rec.TokensTotal
	b.MessageCount += rec.MessageCount
	b.RecordCount++
	if rec.OwnerID != "" {
		b.owners[rec.OwnerID] = struct{}{}
	}
	b.DistinctOwners = len(b.owners)
}

func (b *Bucket) merge(other Bucket) {
	b.TokensIn += other.TokensIn
	b.TokensOut += other.TokensOut
	b.TokensTotal += other.TokensTotal
	b.MessageCount += other.MessageCount
	b.RecordCount += other.RecordCount
	for owner := range other.owners {
		b.owners[owner] = struct{}{}
	}
	b.DistinctOwners = len(b.owners)
}

// keyFor projects a record onto the grouping key. The second return is false
// when the record lacks an attribute the grouping requires; such records are
// excluded from this breakdown but still counted in groupings that do not
// need the missing attribute.
func keyFor(rec CanonicalRecord, by GroupBy) (BucketKey, bool) {
	var key BucketKey
	if by.Source {
		key.SourceID = rec.SourceID
	}
	if by.Dimension {
		if rec.DimensionLabel == "" {
			return BucketKey{}, false
		}
		key.Dimension = rec.DimensionLabel
	}
	if by.Owner {
		if rec.OwnerID == "" {
			return BucketKey{}, false
		}
		key.OwnerID = rec.OwnerID
	}
	if by.Date {
		if rec.Date == "" {
			return BucketKey{}, false
		}
		key.Date = rec.Date
	}
	return key, true
}

// Aggregate folds records into buckets grouped by the given dimensions.
// Bucket order is first-appearance order, which keeps downstream stable
// sorts deterministic.
func Aggregate(records []CanonicalRecord, by GroupBy) []Bucket {
	index := make(map[BucketKey]int)
	var buckets []*Bucket

	for _, rec := range records {
		key, ok := keyFor(rec, by)
		if !ok {
			continue
		}
		i, exists := index[key]
		if !exists {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, newBucket(key))
		}
		buckets[i].add(rec)
	}

	out := make([]Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = *b
	}
	return out
}

// MergeBuckets merges bucket sets produced over partitions of one record
// set. Merging partial aggregates equals aggregating the whole.
func MergeBuckets(sets ...[]Bucket) []Bucket {
	index := make(map[BucketKey]int)
	var buckets []*Bucket

	for _, set := range sets {
		for _, b := range set {
			i, exists := index[b.Key]
			if !exists {
				i = len(buckets)
				index[b.Key] = i
				buckets = append(buckets, newBucket(b.Key))
			}
			buckets[i].merge(b)
		}
	}

	out := make([]Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = *b
	}
	return out
}

// Totals folds records into a single ungrouped bucket.
func Totals(records []CanonicalRecord) Bucket {
	b := newBucket(BucketKey{})
	for _, rec := range records {
		b.add(rec)
	}
	return *b
}
