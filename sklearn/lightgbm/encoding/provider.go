package encoding

import (
	"io"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/scigo/core/model"
	"github.com/ezoic/scigo/core/parallel"
	scigoErrors "github.com/ezoic/scigo/pkg/errors"
	"github.com/ezoic/scigo/pkg/log"
)

// Provider owns the whole categorical-encoding lifecycle: accumulating
// per-thread statistics during ingest, merging and (in distributed mode)
// syncing them at FinishProcess, and transforming raw categorical columns
// into encoded numeric ones for both the training and inference views.
// Mirrors category_encoding_provider.hpp's CategoryEncodingProvider at the
// level of responsibilities, in the Go idiom lgbm_regressor.go's Fit
// method shape uses: functional options at construction, a log.Logger
// field, defer errors.Recover on every ingest method and FinishProcess.
type Provider struct {
	cfg    *Config
	stats  *StatStore
	folds  *FoldAssigner
	logger log.Logger

	numThreads int

	mu                  sync.RWMutex
	numOriginalFeatures int

	encoders []Encoder

	state            *model.StateManager
	numTotalFeatures int
	rawColumns       map[int]int // categorical fid -> extra passthrough column, when keepRaw
	featureNames     []string    // set by ExtendFeatureNames after Finish
	settings         *FeatureSettings
}

// ProviderOption configures optional Provider construction knobs.
type ProviderOption func(*Provider)

// WithNumOriginalFeatures seeds the original-feature-count hint used before
// the first ingest call establishes it definitively (dense/CSR ingest reads
// it off the matrix; streamed text ingest grows it as wider rows arrive).
func WithNumOriginalFeatures(n int) ProviderOption {
	return func(p *Provider) { p.numOriginalFeatures = n }
}

// WithNumThreads overrides the accumulation shard count, which otherwise
// defaults to runtime.GOMAXPROCS(0).
func WithNumThreads(n int) ProviderOption {
	return func(p *Provider) { p.numThreads = n }
}

// NewProvider builds an unfrozen Provider for cfg, constructing one Encoder
// per cfg.encoders entry.
func NewProvider(cfg *Config, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		cfg:        cfg,
		numThreads: runtime.GOMAXPROCS(0),
		logger:     log.GetLoggerWithName("lightgbm.encoding"),
		state:      model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.numThreads < 1 {
		p.numThreads = 1
	}

	p.encoders = make([]Encoder, 0, len(cfg.encoders))
	for _, kind := range cfg.encoders {
		enc, err := newEncoder(kind, cfg)
		if err != nil {
			return nil, err
		}
		p.encoders = append(p.encoders, enc)
	}

	p.stats = NewStatStore(p.numThreads, cfg.k)
	p.folds = NewFoldAssigner(cfg, p.numThreads)

	return p, nil
}

// forEachRowRange splits [0, n) into at most p.numThreads contiguous ranges and
// runs fn(threadID, start, end) on each concurrently, one goroutine per
// range, waiting for every goroutine before returning. threadID indexes
// the StatStore/FoldAssigner shard that range's accumulation writes into,
// so shards stay disjoint without further locking.
func (p *Provider) forEachRowRange(n int, fn func(threadID, start, end int)) {
	if n <= 0 {
		return
	}
	workers := p.numThreads
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	threadID := 0
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(threadID, start, end int) {
			defer wg.Done()
			fn(threadID, start, end)
		}(threadID, start, end)
		threadID++
	}
	wg.Wait()
}

// accumulateRow assigns rowIndex's fold and folds every categorical
// (feature, value) pair into the threadID shard, skipping any feature id
// not configured as categorical and de-duplicating repeated feature ids
// within one row (a malformed CatPair slice should not double-count).
func (p *Provider) accumulateRow(threadID, rowIndex int, pairs []CatPair, label float64) {
	foldID := p.folds.Assign(rowIndex)
	var seen map[int]bool
	if len(pairs) > 1 {
		seen = make(map[int]bool, len(pairs))
	}
	for _, pr := range pairs {
		if !p.cfg.IsCategorical(pr.FeatureID) {
			continue
		}
		if seen != nil {
			if seen[pr.FeatureID] {
				continue
			}
			seen[pr.FeatureID] = true
		}
		p.stats.Accumulate(threadID, pr.FeatureID, foldID, truncateCategory(pr.Value), label)
	}
	p.folds.Accumulate(threadID, foldID, label)
}

func truncateCategory(v float64) int32 { return int32(v) }

func (p *Provider) growOriginalFeatures(n int) {
	p.mu.Lock()
	if n > p.numOriginalFeatures {
		p.numOriginalFeatures = n
	}
	p.mu.Unlock()
}

func rowToPairs(row []float64, catIDs []int) []CatPair {
	pairs := make([]CatPair, 0, len(catIDs))
	for _, fid := range catIDs {
		if fid < len(row) {
			pairs = append(pairs, CatPair{FeatureID: fid, Value: row[fid]})
		}
	}
	return pairs
}

// IngestDense accumulates statistics from a dense-backed RowAccessor of n
// rows, with label[i][0] as row i's target. Fans out across
// p.numThreads goroutines.
func (p *Provider) IngestDense(accessor RowAccessor, n int, label mat.Matrix) (err error) {
	defer scigoErrors.Recover(&err, "Provider.IngestDense")
	return p.ingestAccessor("Provider.IngestDense", accessor, n, label)
}

// IngestCSR accumulates statistics from a CSR-backed RowAccessor. CSR and
// dense ingestion share every accumulation line; the only difference is
// how the caller-supplied RowAccessor densifies a row on read.
func (p *Provider) IngestCSR(accessor RowAccessor, n int, label mat.Matrix) (err error) {
	defer scigoErrors.Recover(&err, "Provider.IngestCSR")
	return p.ingestAccessor("Provider.IngestCSR", accessor, n, label)
}

func (p *Provider) ingestAccessor(op string, accessor RowAccessor, n int, label mat.Matrix) error {
	if p.state.IsFitted() {
		return scigoErrors.NewConfigConflictError(op, "provider already frozen")
	}
	if n == 0 {
		return scigoErrors.ErrEmptyData
	}
	labelRows, _ := label.Dims()
	if labelRows != n {
		return scigoErrors.NewDimensionError(op, n, labelRows, 0)
	}

	catIDs := p.cfg.CategoricalFeatureIDs()
	p.folds.PreMaterialize(n)

	p.forEachRowRange(n, func(threadID, start, end int) {
		for i := start; i < end; i++ {
			row := accessor.Row(i)
			p.growOriginalFeatures(len(row))
			p.accumulateRow(threadID, i, rowToPairs(row, catIDs), label.At(i, 0))
		}
	})
	return nil
}

// IngestCSC accumulates statistics from nrows rows presented as a set of
// caller-supplied sparse columns, one per configured categorical feature,
// paired with featureIDs[i] naming which feature column i represents.
// Iteration advances every column's cursor in lockstep, so this ingest
// path is inherently single-threaded: goroutine-per-range fan-out would
// require materializing the whole matrix first, defeating the point of a
// streamed CSC source.
func (p *Provider) IngestCSC(columns []CSCSource, featureIDs []int, nrows int, labels []float64) (err error) {
	defer scigoErrors.Recover(&err, "Provider.IngestCSC")
	if p.state.IsFitted() {
		return scigoErrors.NewConfigConflictError("Provider.IngestCSC", "provider already frozen")
	}
	if nrows == 0 {
		return scigoErrors.ErrEmptyData
	}
	if len(columns) != len(featureIDs) {
		return scigoErrors.NewDimensionError("Provider.IngestCSC", len(columns), len(featureIDs), 1)
	}
	if len(labels) != nrows {
		return scigoErrors.NewDimensionError("Provider.IngestCSC", nrows, len(labels), 0)
	}

	maxFid := -1
	for _, fid := range featureIDs {
		if fid > maxFid {
			maxFid = fid
		}
	}
	if maxFid >= 0 {
		p.growOriginalFeatures(maxFid + 1)
	}

	p.folds.PreMaterialize(nrows)

	it := NewCSCRowIterator(columns, featureIDs)
	for row := 0; row < nrows; row++ {
		p.accumulateRow(0, row, it.Next(), labels[row])
	}
	return nil
}

// IngestText accumulates statistics by scanning r line by line, decoding
// each line through parser. The feature universe (numOriginalFeatures)
// grows as wider rows arrive, since a streamed source doesn't know its
// column count up front. Single-threaded: a text stream is read
// sequentially by nature.
func (p *Provider) IngestText(r io.Reader, parser RowParser) (err error) {
	defer scigoErrors.Recover(&err, "Provider.IngestText")
	if p.state.IsFitted() {
		return scigoErrors.NewConfigConflictError("Provider.IngestText", "provider already frozen")
	}

	stream := NewParser(r, parser)
	rowIndex := 0
	for {
		pairs, label, ok, perr := stream.Next()
		if perr != nil {
			return scigoErrors.NewFatalError("Provider.IngestText", perr)
		}
		if !ok {
			break
		}
		maxFid := -1
		for _, pr := range pairs {
			if pr.FeatureID > maxFid {
				maxFid = pr.FeatureID
			}
		}
		if maxFid >= 0 {
			p.growOriginalFeatures(maxFid + 1)
		}
		p.accumulateRow(0, rowIndex, pairs, label)
		rowIndex++
	}
	if rowIndex == 0 {
		return scigoErrors.ErrEmptyData
	}
	return nil
}

// FinishProcess merges every thread's shards, optionally syncs them across
// numMachines participants via reducer, aggregates the all-folds cell,
// computes fold priors and the global mean, freezes each
// TargetLabelMeanEncoder's prior, assigns output columns, and marks the
// Provider frozen. Ingest methods reject calls after this point.
func (p *Provider) FinishProcess(numMachines int, reducer AllReducer) (err error) {
	defer scigoErrors.Recover(&err, "Provider.FinishProcess")
	if p.state.IsFitted() {
		return scigoErrors.NewConfigConflictError("Provider.FinishProcess", "provider already frozen")
	}

	catIDs := p.cfg.CategoricalFeatureIDs()
	p.logger.Info("finishing category encoding fit",
		log.FeaturesKey, len(catIDs),
		"folds", p.cfg.K(),
		"encoders", len(p.encoders))

	p.stats.MergeThreads()
	p.folds.MergeThreads()

	if numMachines > 1 {
		if reducer == nil {
			return scigoErrors.NewConfigConflictError("Provider.FinishProcess", "numMachines > 1 requires a non-nil AllReducer")
		}
		var maxCat int32 = -1
		for _, fid := range catIDs {
			if m := p.stats.MaxCategory(fid); m > maxCat {
				maxCat = m
			}
		}
		if serr := p.stats.Sync(reducer, catIDs, maxCat); serr != nil {
			return scigoErrors.NewFatalError("Provider.FinishProcess", serr)
		}
		if serr := p.folds.Sync(reducer); serr != nil {
			return scigoErrors.NewFatalError("Provider.FinishProcess", serr)
		}
	}

	p.stats.AggregateAllFolds()
	p.folds.ComputePriors()

	for _, enc := range p.encoders {
		if tlm, ok := enc.(*TargetLabelMeanEncoder); ok {
			tlm.SetPrior(p.folds.GlobalMean())
		}
	}

	col := p.numOriginalFeatures
	for _, enc := range p.encoders {
		for _, fid := range catIDs {
			enc.setOutputColumn(fid, col)
			col++
		}
	}

	if p.cfg.KeepRaw() {
		p.rawColumns = make(map[int]int, len(catIDs))
		for _, fid := range catIDs {
			p.rawColumns[fid] = col
			col++
		}
	}

	p.numTotalFeatures = col
	p.state.SetFitted()

	p.logger.Info("category encoding fit complete",
		log.FeaturesKey, p.numTotalFeatures,
		"global_mean", p.folds.GlobalMean())
	return nil
}

// Finish is FinishProcess for the single-machine case.
func (p *Provider) Finish() error {
	return p.FinishProcess(1, nil)
}

func (p *Provider) transform(row []float64, foldID int, train bool) ([]float64, error) {
	out := make([]float64, p.numTotalFeatures)
	copy(out, row)

	for _, fid := range p.cfg.CategoricalFeatureIDs() {
		var raw float64
		if fid < len(row) {
			raw = row[fid]
		}
		cat := truncateCategory(raw)

		for _, enc := range p.encoders {
			col, ok := enc.OutputColumn(fid)
			if !ok {
				continue
			}
			var v float64
			var verr error
			if train {
				labelSum, countOutside, countAllFolds := p.stats.LookupTrain(fid, foldID, cat)
				v, verr = enc.ValueTrain(labelSum, countOutside, countAllFolds, p.folds.FoldPrior(foldID))
			} else {
				labelSum, count := p.stats.LookupInfer(fid, cat)
				v, verr = enc.ValueInfer(labelSum, count, count)
			}
			if verr != nil {
				return nil, verr
			}
			out[col] = v
		}

		if p.cfg.KeepRaw() {
			out[p.rawColumns[fid]] = raw
		}
		if fid < len(out) {
			out[fid] = 0
		}
	}
	return out, nil
}

// TransformTrain rewrites one dense training row's categorical columns
// into their out-of-fold encoded values: rowIndex's own fold is excluded
// from every aggregate consulted, so no encoded value depends on the row's
// own label.
func (p *Provider) TransformTrain(row []float64, rowIndex int) ([]float64, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "TransformTrain")
	}
	return p.transform(row, p.folds.Assign(rowIndex), true)
}

// TransformInfer rewrites one dense row's categorical columns into their
// all-folds encoded values, for held-out or prediction-time rows with no
// fold assignment of their own.
func (p *Provider) TransformInfer(row []float64) ([]float64, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "TransformInfer")
	}
	return p.transform(row, p.stats.AllFoldsSentinel(), false)
}

// TransformInferBatch transforms every row in rows through TransformInfer,
// fanning out with core/parallel.Parallelize instead of forEachRowRange:
// once frozen, a Provider's stat and fold lookups are read-only, so batch
// inference has no accumulation shard to keep disjoint and needs none of
// forEachRowRange's threadID bookkeeping, unlike ingest.
func (p *Provider) TransformInferBatch(rows [][]float64) ([][]float64, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "TransformInferBatch")
	}
	out := make([][]float64, len(rows))
	var mu sync.Mutex
	var firstErr error
	sentinel := p.stats.AllFoldsSentinel()

	parallel.Parallelize(len(rows), func(start, end int) {
		for i := start; i < end; i++ {
			row, err := p.transform(rows[i], sentinel, false)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				continue
			}
			out[i] = row
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// TransformTrainSparse is TransformTrain for a row presented as sparse
// (feature_id, value) pairs; missing categorical feature ids are treated
// as category 0.
func (p *Provider) TransformTrainSparse(pairs []CatPair, rowIndex int) ([]float64, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "TransformTrainSparse")
	}
	return p.transform(densify(pairs, p.numOriginalFeatures), p.folds.Assign(rowIndex), true)
}

// TransformInferSparse is TransformInfer for a row presented as sparse
// (feature_id, value) pairs.
func (p *Provider) TransformInferSparse(pairs []CatPair) ([]float64, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "TransformInferSparse")
	}
	return p.transform(densify(pairs, p.numOriginalFeatures), p.stats.AllFoldsSentinel(), false)
}

func densify(pairs []CatPair, width int) []float64 {
	row := make([]float64, width)
	for _, pr := range pairs {
		if pr.FeatureID < width {
			row[pr.FeatureID] = pr.Value
		}
	}
	return row
}

// NumOriginalFeatures returns the input feature count observed (or hinted)
// before any encoded/passthrough columns are appended.
func (p *Provider) NumOriginalFeatures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.numOriginalFeatures
}

// NumTotalFeatures returns the transformed row width, valid after
// FinishProcess.
func (p *Provider) NumTotalFeatures() int { return p.numTotalFeatures }

// IsCategorical reports whether fid is one of the configured categorical
// feature ids.
func (p *Provider) IsCategorical(fid int) bool { return p.cfg.IsCategorical(fid) }

// ExtendFeatureNames builds the transformed schema's column names: the
// original names verbatim, followed by "<encoder>_<original>" for every
// (encoder, categorical feature) pair in the same order FinishProcess
// assigned output columns, followed by "<original>_raw" passthrough names
// when keep_raw is set.
func (p *Provider) ExtendFeatureNames(originalNames []string) ([]string, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "ExtendFeatureNames")
	}
	if len(originalNames) != p.numOriginalFeatures {
		return nil, scigoErrors.NewDimensionError("Provider.ExtendFeatureNames", p.numOriginalFeatures, len(originalNames), 0)
	}

	names := make([]string, p.numTotalFeatures)
	copy(names, originalNames)

	catIDs := p.cfg.CategoricalFeatureIDs()
	for _, enc := range p.encoders {
		for _, fid := range catIDs {
			col, ok := enc.OutputColumn(fid)
			if !ok {
				continue
			}
			names[col] = derivedName(enc.Kind(), originalNames[fid])
		}
	}
	for fid, col := range p.rawColumns {
		names[col] = originalNames[fid] + "_raw"
	}

	p.featureNames = names
	return names, nil
}

// ExtendPerFeatureSetting copies settings' monotone-constraint,
// interaction-constraint, and feature-contribution-weight entries from
// each source categorical feature id onto every output column derived
// from it, so tree growth sees the same constraints on an encoded column
// that it would have seen on the raw categorical column.
func (p *Provider) ExtendPerFeatureSetting(settings *FeatureSettings) (*FeatureSettings, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "ExtendPerFeatureSetting")
	}
	extended := &FeatureSettings{
		MonotoneConstraint:    map[int]int{},
		InteractionConstraint: map[int][]int{},
		ContributionWeight:    map[int]float64{},
	}
	for fid, v := range settings.MonotoneConstraint {
		extended.MonotoneConstraint[fid] = v
	}
	for fid, v := range settings.InteractionConstraint {
		extended.InteractionConstraint[fid] = append([]int(nil), v...)
	}
	for fid, v := range settings.ContributionWeight {
		extended.ContributionWeight[fid] = v
	}

	catIDs := p.cfg.CategoricalFeatureIDs()
	for _, enc := range p.encoders {
		for _, fid := range catIDs {
			col, ok := enc.OutputColumn(fid)
			if !ok {
				continue
			}
			if v, ok := settings.MonotoneConstraint[fid]; ok {
				extended.MonotoneConstraint[col] = v
			}
			if v, ok := settings.InteractionConstraint[fid]; ok {
				extended.InteractionConstraint[col] = append([]int(nil), v...)
			}
			if v, ok := settings.ContributionWeight[fid]; ok {
				extended.ContributionWeight[col] = v
			}
		}
	}
	for fid, col := range p.rawColumns {
		if v, ok := settings.MonotoneConstraint[fid]; ok {
			extended.MonotoneConstraint[col] = v
		}
		if v, ok := settings.InteractionConstraint[fid]; ok {
			extended.InteractionConstraint[col] = append([]int(nil), v...)
		}
		if v, ok := settings.ContributionWeight[fid]; ok {
			extended.ContributionWeight[col] = v
		}
	}

	p.settings = extended
	return extended, nil
}

// CheckForcedSplits rejects any forced split naming a categorical feature
// that has no raw-passthrough column, since a forced split needs a stable
// concrete column id to split on and an encoded-only categorical feature's
// output columns are derived statistics, not the category itself.
func (p *Provider) CheckForcedSplits(forced []ForcedSplit) error {
	if !p.state.IsFitted() {
		return scigoErrors.NewNotFittedError("Provider", "CheckForcedSplits")
	}
	for _, fs := range forced {
		if !p.cfg.IsCategorical(fs.FeatureID) {
			continue
		}
		if _, ok := p.rawColumns[fs.FeatureID]; !ok {
			return scigoErrors.NewConfigConflictError(
				"Provider.CheckForcedSplits",
				"forced split references categorical feature with no raw passthrough column; set WithKeepRaw(true)",
			)
		}
	}
	return nil
}
