package encoding

import (
	"sort"
	"sync"
)

// categoryKey identifies one (feature, fold, category) accumulator cell.
// AllFoldsSentinel is used as the Fold value for the merged, cross-fold
// aggregate computed by AggregateAllFolds.
type categoryKey struct {
	Feature  int
	Fold     int
	Category int32
}

type cell struct {
	Count    uint64
	LabelSum float64
}

// StatStore is the (feature_id, fold_id, category_value) -> (count,
// label_sum) accumulator. Threads write into disjoint shard maps during
// ingest; MergeThreads folds them into one authoritative map afterward.
type StatStore struct {
	k int // number of real folds; AllFoldsSentinel == k

	mu     sync.RWMutex // guards shard slice growth (new thread ids)
	shards []map[categoryKey]*cell

	merged map[categoryKey]*cell
}

// AllFoldsSentinel is the synthetic fold id whose accumulator holds the sum
// over every real fold, populated by AggregateAllFolds.
func (s *StatStore) AllFoldsSentinel() int { return s.k }

// NewStatStore returns a StatStore with numThreads pre-allocated shards for
// k real folds.
func NewStatStore(numThreads, k int) *StatStore {
	if numThreads < 1 {
		numThreads = 1
	}
	shards := make([]map[categoryKey]*cell, numThreads)
	for i := range shards {
		shards[i] = make(map[categoryKey]*cell)
	}
	return &StatStore{k: k, shards: shards}
}

// Accumulate applies one (count=1, label) observation to the thread-local
// shard for threadID. threadID must be < the shard count NewStatStore was
// given; EnsureThreads grows the shard slice for streamed ingest paths that
// don't know the worker count up front.
func (s *StatStore) Accumulate(threadID, featureID, foldID int, category int32, label float64) {
	s.mu.RLock()
	shard := s.shards[threadID]
	s.mu.RUnlock()

	key := categoryKey{Feature: featureID, Fold: foldID, Category: category}
	c, ok := shard[key]
	if !ok {
		c = &cell{}
		shard[key] = c
	}
	c.Count++
	c.LabelSum += label
}

// EnsureThreads grows the shard slice under a writer lock to at least n
// shards; a smaller n is a no-op. No ingest path in this package calls it:
// IngestText and IngestCSC accumulate into shard 0.
func (s *StatStore) EnsureThreads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.shards) < n {
		s.shards = append(s.shards, make(map[categoryKey]*cell))
	}
}

// MergeThreads folds every thread-local shard into the single authoritative
// map. Must run after every accumulating goroutine has quiesced; it is not
// itself safe to call concurrently with Accumulate.
func (s *StatStore) MergeThreads() {
	merged := make(map[categoryKey]*cell)
	for _, shard := range s.shards {
		for key, c := range shard {
			m, ok := merged[key]
			if !ok {
				m = &cell{}
				merged[key] = m
			}
			m.Count += c.Count
			m.LabelSum += c.LabelSum
		}
	}
	s.merged = merged
}

// AggregateAllFolds computes, for every (feature, category) pair present in
// any real fold, the AllFoldsSentinel cell as the sum over folds [0, k).
// Must run after MergeThreads (and after Sync, in distributed mode).
func (s *StatStore) AggregateAllFolds() {
	type fc struct {
		Feature  int
		Category int32
	}
	sums := make(map[fc]*cell)
	for key, c := range s.merged {
		if key.Fold >= s.k {
			continue
		}
		fck := fc{Feature: key.Feature, Category: key.Category}
		agg, ok := sums[fck]
		if !ok {
			agg = &cell{}
			sums[fck] = agg
		}
		agg.Count += c.Count
		agg.LabelSum += c.LabelSum
	}
	for fck, agg := range sums {
		s.merged[categoryKey{Feature: fck.Feature, Fold: s.k, Category: fck.Category}] = agg
	}
}

// LookupTrain returns the leave-fold-out aggregates a training-view
// transform needs: the label sum and count summed over every fold except
// foldID (so no value at a row depends on that row's own label), plus the
// all-folds count for encoders like Count that ignore the fold split
// entirely. A category absent from the map reports all zeros.
func (s *StatStore) LookupTrain(featureID, foldID int, category int32) (labelSumOutside float64, countOutside uint64, countAllFolds uint64) {
	var allSum, thisSum float64
	var allCount, thisCount uint64

	if all := s.merged[categoryKey{Feature: featureID, Fold: s.k, Category: category}]; all != nil {
		allSum, allCount = all.LabelSum, all.Count
	}
	if this := s.merged[categoryKey{Feature: featureID, Fold: foldID, Category: category}]; this != nil {
		thisSum, thisCount = this.LabelSum, this.Count
	}

	return allSum - thisSum, allCount - thisCount, allCount
}

// LookupInfer returns the all-folds aggregates an inference-view transform
// uses. A category absent from the map reports all zeros.
func (s *StatStore) LookupInfer(featureID int, category int32) (labelSum float64, count uint64) {
	all := s.merged[categoryKey{Feature: featureID, Fold: s.k, Category: category}]
	if all == nil {
		return 0, 0
	}
	return all.LabelSum, all.Count
}

// FeatureCategories returns the sorted set of category values observed for
// featureID across every real fold, used by Provider.CategoryCounts.
func (s *StatStore) FeatureCategories(featureID int) []int32 {
	seen := make(map[int32]bool)
	for key := range s.merged {
		if key.Feature == featureID && key.Fold < s.k {
			seen[key.Category] = true
		}
	}
	cats := make([]int32, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// MaxCategory returns the largest category value observed for featureID, or
// -1 if none has been observed.
func (s *StatStore) MaxCategory(featureID int) int32 {
	max := int32(-1)
	for key := range s.merged {
		if key.Feature == featureID && key.Category > max {
			max = key.Category
		}
	}
	return max
}

// Sync performs the cross-machine reduction described in FinishProcess step
// 2: for each feature and each real fold, the local (count, label_sum)
// cells are densified over category ids [0, maxCategory] in ascending
// order and summed via reducer, so every machine combines identical vector
// positions regardless of which categories it observed locally. maxCategory
// must already reflect the global maximum across every machine; determining
// that bound is the same collective-transport responsibility this package
// treats as external (see AllReducer).
func (s *StatStore) Sync(reducer AllReducer, features []int, maxCategory int32) error {
	for _, fid := range features {
		for fold := 0; fold < s.k; fold++ {
			n := int(maxCategory) + 1
			if n <= 0 {
				continue
			}
			counts := make([]float64, n)
			sums := make([]float64, n)
			for cat := int32(0); cat < int32(n); cat++ {
				if c, ok := s.merged[categoryKey{Feature: fid, Fold: fold, Category: cat}]; ok {
					counts[cat] = float64(c.Count)
					sums[cat] = c.LabelSum
				}
			}

			reducedCounts, err := reducer.AllReduceSum(counts)
			if err != nil {
				return err
			}
			reducedSums, err := reducer.AllReduceSum(sums)
			if err != nil {
				return err
			}

			for cat := 0; cat < n; cat++ {
				if reducedCounts[cat] == 0 && reducedSums[cat] == 0 {
					delete(s.merged, categoryKey{Feature: fid, Fold: fold, Category: int32(cat)})
					continue
				}
				s.merged[categoryKey{Feature: fid, Fold: fold, Category: int32(cat)}] = &cell{
					Count:    uint64(reducedCounts[cat]),
					LabelSum: reducedSums[cat],
				}
			}
		}
	}
	return nil
}
