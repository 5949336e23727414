package encoding

// CatPair is one sparse (feature_id, value) entry within a row, the shape
// both the streamed-text parser and CSR ingestion report categorical
// entries in.
type CatPair struct {
	FeatureID int
	Value     float64
}

// RowParser decodes one line of streamed text input into its sparse
// (feature, value) pairs and scalar label. Implementations are supplied by
// the caller; this package only consumes the interface.
type RowParser interface {
	ParseOneLine(text string, rowIndex int) (pairs []CatPair, label float64, err error)
}

// CSCSource is one column of a caller-supplied CSC matrix. NextNonZero
// returns (-1, 0) once exhausted.
type CSCSource interface {
	Get(row int) float64
	NextNonZero() (row int, val float64)
	Reset()
}

// RowAccessor exposes one row, densified to feature-id-indexed order,
// regardless of whether the backing storage is a dense matrix or a
// per-row-materialized CSR matrix. Provider.IngestDense and
// Provider.IngestCSR both accumulate through it, so the two ingest shapes
// share every line of accumulation logic; only the accessor implementation
// differs.
type RowAccessor interface {
	Row(rowIndex int) []float64
}

// AllReducer performs the cluster-transport collective operation this
// package treats as an external collaborator: given a caller-densified
// vector, it returns the element-wise sum across every participating
// machine. A single-machine fit never calls it.
type AllReducer interface {
	AllReduceSum(data []float64) ([]float64, error)
}

// ForcedSplit names a categorical feature a downstream tree-growth forced
// split references directly, requiring a raw passthrough encoder.
type ForcedSplit struct {
	FeatureID int
}

// FeatureSettings carries the per-original-feature tree-growth settings
// ExtendPerFeatureSetting copies onto each derived output column.
type FeatureSettings struct {
	MonotoneConstraint    map[int]int
	InteractionConstraint map[int][]int
	ContributionWeight    map[int]float64
}
