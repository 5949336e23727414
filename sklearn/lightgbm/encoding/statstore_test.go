package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStatStore_AllFoldsSumsMatchPerFoldSum covers invariant 1: summing a
// category's per-fold count and label_sum over every real fold equals the
// AggregateAllFolds cell.
func TestStatStore_AllFoldsSumsMatchPerFoldSum(t *testing.T) {
	s := NewStatStore(2, 3)
	s.Accumulate(0, 0, 0, 7, 1.0)
	s.Accumulate(0, 0, 1, 7, 0.0)
	s.Accumulate(1, 0, 2, 7, 1.0)
	s.Accumulate(1, 0, 0, 7, 1.0)
	s.MergeThreads()
	s.AggregateAllFolds()

	var wantCount uint64
	var wantSum float64

	sum0, count0 := s.LookupInfer(0, 7)
	for f := 0; f < 3; f++ {
		c := s.merged[categoryKey{Feature: 0, Fold: f, Category: 7}]
		if c != nil {
			wantCount += c.Count
			wantSum += c.LabelSum
		}
	}
	require.Equal(t, wantCount, count0)
	require.InDelta(t, wantSum, sum0, 1e-12)
}

// S1: Config encoders=[Count], K=1, C={0}. Rows (A=0,1),(A=0,0),(B=1,1).
func TestStatStore_S1CountScenario(t *testing.T) {
	s := NewStatStore(1, 1)
	s.Accumulate(0, 0, 0, 0, 1.0) // A, label 1
	s.Accumulate(0, 0, 0, 0, 0.0) // A, label 0
	s.Accumulate(0, 0, 0, 1, 1.0) // B, label 1
	s.MergeThreads()
	s.AggregateAllFolds()

	_, countA := s.LookupInfer(0, 0)
	_, countB := s.LookupInfer(0, 1)
	_, countUnseen := s.LookupInfer(0, 2)

	require.Equal(t, uint64(2), countA)
	require.Equal(t, uint64(1), countB)
	require.Equal(t, uint64(0), countUnseen, "an unseen category reports zero, not an error")
}

func TestStatStore_EnsureThreadsGrowsShards(t *testing.T) {
	s := NewStatStore(1, 1)
	require.Len(t, s.shards, 1)
	s.EnsureThreads(4)
	require.Len(t, s.shards, 4)
	// Growing to a smaller count is a no-op.
	s.EnsureThreads(2)
	require.Len(t, s.shards, 4)
}

func TestStatStore_FeatureCategoriesAndMaxCategory(t *testing.T) {
	s := NewStatStore(1, 1)
	s.Accumulate(0, 0, 0, 5, 1.0)
	s.Accumulate(0, 0, 0, 1, 1.0)
	s.Accumulate(0, 0, 0, 9, 1.0)
	s.MergeThreads()

	require.Equal(t, []int32{1, 5, 9}, s.FeatureCategories(0))
	require.Equal(t, int32(9), s.MaxCategory(0))
	require.Equal(t, int32(-1), s.MaxCategory(1), "a feature with no observations reports -1")
}

// stubReducer implements AllReducer as a single-machine identity, useful
// for exercising Sync's densify-then-reduce plumbing without a real
// cluster transport.
type stubReducer struct{}

func (stubReducer) AllReduceSum(data []float64) ([]float64, error) {
	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}

func TestStatStore_SyncIsIdentityForOneMachine(t *testing.T) {
	s := NewStatStore(1, 2)
	s.Accumulate(0, 0, 0, 3, 2.0)
	s.Accumulate(0, 0, 1, 3, 4.0)
	s.MergeThreads()

	err := s.Sync(stubReducer{}, []int{0}, 3)
	require.NoError(t, err)

	sum, count := s.LookupInfer(0, 3)
	_ = sum
	require.Equal(t, uint64(0), count, "AggregateAllFolds has not run yet, so the sentinel cell is still empty")

	s.AggregateAllFolds()
	sum, count = s.LookupInfer(0, 3)
	require.Equal(t, uint64(2), count)
	require.InDelta(t, 6.0, sum, 1e-12)
}
