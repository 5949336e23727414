package encoding

import (
	"math/rand/v2"
	"sync"
)

// FoldAssigner deterministically maps a training row to one of K folds and
// tracks the per-fold label totals needed for the fold prior and the global
// label mean. Assignment is a pure function of (seed, row_index, K): it
// does not depend on ingestion order, thread count, or whether the caller
// pre-materializes a fold vector or samples at row arrival.
type FoldAssigner struct {
	k          int
	seed       uint64
	cumulative []float64 // cumulative distribution over [0, k)

	assignments []int // pre-materialized fold ids, nil until PreMaterialize runs

	mu            sync.RWMutex
	shardLabelSum [][]float64
	shardRowCount [][]uint64

	mergedLabelSum []float64
	mergedRowCount []uint64

	foldPrior  []float64
	globalMean float64
}

// NewFoldAssigner builds a FoldAssigner for cfg's fold count, seed, and
// per-fold probability vector, with numThreads pre-allocated accumulation
// shards.
func NewFoldAssigner(cfg *Config, numThreads int) *FoldAssigner {
	if numThreads < 1 {
		numThreads = 1
	}
	cumulative := make([]float64, cfg.k)
	running := 0.0
	for i, p := range cfg.foldProbabilities {
		running += p
		cumulative[i] = running
	}

	shardLabelSum := make([][]float64, numThreads)
	shardRowCount := make([][]uint64, numThreads)
	for i := range shardLabelSum {
		shardLabelSum[i] = make([]float64, cfg.k)
		shardRowCount[i] = make([]uint64, cfg.k)
	}

	return &FoldAssigner{
		k:             cfg.k,
		seed:          cfg.seed,
		cumulative:    cumulative,
		shardLabelSum: shardLabelSum,
		shardRowCount: shardRowCount,
	}
}

// assignPure is the deterministic (seed, rowIndex, K) -> fold_id function.
// Every caller path (streamed sampling, dense/CSR/CSC pre-materialization)
// resolves to this same computation, which is what makes fold assignment
// invariant to ingestion shape and thread scheduling.
func (fa *FoldAssigner) assignPure(rowIndex int) int {
	src := rand.NewPCG(fa.seed, uint64(rowIndex))
	draw := rand.New(src).Float64()
	for f, cum := range fa.cumulative {
		if draw < cum {
			return f
		}
	}
	return fa.k - 1
}

// PreMaterialize fills a length-n fold vector up front, making Assign O(1)
// for dense/CSR/CSC ingestion where N is known in advance.
func (fa *FoldAssigner) PreMaterialize(n int) {
	assignments := make([]int, n)
	for i := 0; i < n; i++ {
		assignments[i] = fa.assignPure(i)
	}
	fa.assignments = assignments
}

// Assign returns rowIndex's fold id, from the pre-materialized vector if
// PreMaterialize ran, otherwise computed directly.
func (fa *FoldAssigner) Assign(rowIndex int) int {
	if fa.assignments != nil && rowIndex < len(fa.assignments) {
		return fa.assignments[rowIndex]
	}
	return fa.assignPure(rowIndex)
}

// EnsureThreads grows the shard slices under a writer lock to at least n
// shards, mirroring StatStore.EnsureThreads; no ingest path calls it.
func (fa *FoldAssigner) EnsureThreads(n int) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	for len(fa.shardLabelSum) < n {
		fa.shardLabelSum = append(fa.shardLabelSum, make([]float64, fa.k))
		fa.shardRowCount = append(fa.shardRowCount, make([]uint64, fa.k))
	}
}

// Accumulate records one row's label against its fold in threadID's shard.
func (fa *FoldAssigner) Accumulate(threadID, foldID int, label float64) {
	fa.mu.RLock()
	defer fa.mu.RUnlock()
	fa.shardLabelSum[threadID][foldID] += label
	fa.shardRowCount[threadID][foldID]++
}

// MergeThreads folds every shard's per-fold totals into the authoritative
// merged vectors.
func (fa *FoldAssigner) MergeThreads() {
	labelSum := make([]float64, fa.k)
	rowCount := make([]uint64, fa.k)
	for t := range fa.shardLabelSum {
		for f := 0; f < fa.k; f++ {
			labelSum[f] += fa.shardLabelSum[t][f]
			rowCount[f] += fa.shardRowCount[t][f]
		}
	}
	fa.mergedLabelSum = labelSum
	fa.mergedRowCount = rowCount
}

// Sync all-reduces the per-fold label sums and row counts across machines.
func (fa *FoldAssigner) Sync(reducer AllReducer) error {
	counts := make([]float64, fa.k)
	for i, c := range fa.mergedRowCount {
		counts[i] = float64(c)
	}

	reducedSums, err := reducer.AllReduceSum(fa.mergedLabelSum)
	if err != nil {
		return err
	}
	reducedCounts, err := reducer.AllReduceSum(counts)
	if err != nil {
		return err
	}

	fa.mergedLabelSum = reducedSums
	fa.mergedRowCount = make([]uint64, fa.k)
	for i, c := range reducedCounts {
		fa.mergedRowCount[i] = uint64(c)
	}
	return nil
}

// ComputePriors derives, from the merged (and, in distributed mode,
// synced) per-fold totals, the global label mean and each fold's
// leave-fold-out prior: fold_prior[f] = label_sum_outside_f /
// row_count_outside_f, falling back to the global mean when fold f is
// every row (row_count_outside_f == 0).
func (fa *FoldAssigner) ComputePriors() {
	var totalSum float64
	var totalCount uint64
	for f := 0; f < fa.k; f++ {
		totalSum += fa.mergedLabelSum[f]
		totalCount += fa.mergedRowCount[f]
	}

	if totalCount > 0 {
		fa.globalMean = totalSum / float64(totalCount)
	}

	fa.foldPrior = make([]float64, fa.k)
	for f := 0; f < fa.k; f++ {
		outsideCount := totalCount - fa.mergedRowCount[f]
		if outsideCount == 0 {
			fa.foldPrior[f] = fa.globalMean
			continue
		}
		outsideSum := totalSum - fa.mergedLabelSum[f]
		fa.foldPrior[f] = outsideSum / float64(outsideCount)
	}
}

// FoldPrior returns fold f's leave-fold-out prior, valid after
// ComputePriors runs.
func (fa *FoldAssigner) FoldPrior(f int) float64 {
	if f < 0 || f >= len(fa.foldPrior) {
		return fa.globalMean
	}
	return fa.foldPrior[f]
}

// GlobalMean returns the label mean over every accumulated row, valid
// after ComputePriors runs.
func (fa *FoldAssigner) GlobalMean() float64 { return fa.globalMean }
