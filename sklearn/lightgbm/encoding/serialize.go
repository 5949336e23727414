package encoding

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	scigoErrors "github.com/ezoic/scigo/pkg/errors"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseIntList(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloatList(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SerializeLine writes the frozen Provider's line form to w: a header of
// scalar fields, the categorical feature id list, the per-fold priors,
// then one block per encoder giving its type tag, optional prior, and its
// categorical_feature_index_to_encoded_feature_index mapping.
func (p *Provider) SerializeLine(w io.Writer) error {
	if !p.state.IsFitted() {
		return scigoErrors.NewNotFittedError("Provider", "SerializeLine")
	}

	bw := bufio.NewWriter(w)
	catIDs := p.cfg.CategoricalFeatureIDs()

	fmt.Fprintf(bw, "num_original_features=%d\n", p.numOriginalFeatures)
	fmt.Fprintf(bw, "num_total_features=%d\n", p.numTotalFeatures)
	fmt.Fprintf(bw, "keep_raw=%t\n", p.cfg.KeepRaw())
	fmt.Fprintf(bw, "prior_weight=%s\n", formatFloat(p.cfg.PriorWeight()))

	catFields := make([]string, len(catIDs))
	for i, fid := range catIDs {
		catFields[i] = strconv.Itoa(fid)
	}
	fmt.Fprintf(bw, "categorical_features=%s\n", strings.Join(catFields, " "))

	priorFields := make([]string, p.cfg.K())
	for f := 0; f < p.cfg.K(); f++ {
		priorFields[f] = formatFloat(p.folds.FoldPrior(f))
	}
	fmt.Fprintf(bw, "fold_prior=%s\n", strings.Join(priorFields, " "))

	for _, enc := range p.encoders {
		fmt.Fprintf(bw, "type=%s\n", enc.Kind().String())
		if pv, ok := enc.priorValue(); ok {
			fmt.Fprintf(bw, "prior=%s\n", formatFloat(pv))
		}
		mapping := make([]string, 0, len(catIDs))
		for _, fid := range catIDs {
			col, ok := enc.OutputColumn(fid)
			if !ok {
				continue
			}
			mapping = append(mapping, fmt.Sprintf("%d:%d", fid, col))
		}
		fmt.Fprintf(bw, "categorical_feature_index_to_encoded_feature_index=%s\n", strings.Join(mapping, " "))
	}

	return bw.Flush()
}

// DeserializeLine reconstructs a frozen Provider from SerializeLine's
// output. Unknown type tags, a malformed line, or a missing mapping line
// each produce a *errors.ModelFormatError.
func DeserializeLine(r io.Reader) (*Provider, error) {
	const op = "DeserializeLine"

	header := map[string]string{}
	type block struct {
		fields map[string]string
	}
	var blocks []*block
	var current *block

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, scigoErrors.NewModelFormatError(op, "malformed line, expected key=value: "+line)
		}
		if key == "type" {
			current = &block{fields: map[string]string{"type": val}}
			blocks = append(blocks, current)
			continue
		}
		if current != nil {
			current.fields[key] = val
			continue
		}
		header[key] = val
	}
	if serr := scanner.Err(); serr != nil {
		return nil, scigoErrors.NewFatalError(op, serr)
	}

	numOriginal, err := requireInt(op, header, "num_original_features")
	if err != nil {
		return nil, err
	}
	numTotal, err := requireInt(op, header, "num_total_features")
	if err != nil {
		return nil, err
	}
	keepRaw, err := requireBool(op, header, "keep_raw")
	if err != nil {
		return nil, err
	}
	priorWeight, err := requireFloat(op, header, "prior_weight")
	if err != nil {
		return nil, err
	}
	catFieldsStr, err := requireField(op, header, "categorical_features")
	if err != nil {
		return nil, err
	}
	catIDs, perr := parseIntList(catFieldsStr)
	if perr != nil {
		return nil, scigoErrors.NewModelFormatError(op, "malformed categorical_features: "+perr.Error())
	}
	foldPriorStr, err := requireField(op, header, "fold_prior")
	if err != nil {
		return nil, err
	}
	foldPriors, perr := parseFloatList(foldPriorStr)
	if perr != nil {
		return nil, scigoErrors.NewModelFormatError(op, "malformed fold_prior: "+perr.Error())
	}
	if len(blocks) == 0 {
		return nil, scigoErrors.NewModelFormatError(op, "no encoder blocks present")
	}

	kinds := make([]EncoderKind, len(blocks))
	for i, blk := range blocks {
		kind, kerr := EncoderKindFromTag(blk.fields["type"])
		if kerr != nil {
			return nil, kerr
		}
		kinds[i] = kind
	}

	var targetPrior float64
	for i, blk := range blocks {
		if kinds[i] == TargetEncoderKind {
			v, ferr := requireFloat(op, blk.fields, "prior")
			if ferr != nil {
				return nil, ferr
			}
			targetPrior = v
		}
	}

	cfg, cerr := NewConfig(len(foldPriors), catIDs, kinds,
		WithPriorWeight(priorWeight), WithTargetPrior(targetPrior), WithKeepRaw(keepRaw))
	if cerr != nil {
		return nil, cerr
	}
	p, perr2 := NewProvider(cfg)
	if perr2 != nil {
		return nil, perr2
	}

	for i, enc := range p.encoders {
		blk := blocks[i]
		if tlm, ok := enc.(*TargetLabelMeanEncoder); ok {
			v, ferr := requireFloat(op, blk.fields, "prior")
			if ferr != nil {
				return nil, ferr
			}
			tlm.SetPrior(v)
		}
		mapStr, ok := blk.fields["categorical_feature_index_to_encoded_feature_index"]
		if !ok {
			return nil, scigoErrors.NewModelFormatError(op, "encoder block missing categorical_feature_index_to_encoded_feature_index")
		}
		if err := applyColumnMapping(enc, mapStr); err != nil {
			return nil, err
		}
	}

	p.folds.foldPrior = foldPriors
	p.numOriginalFeatures = numOriginal
	p.numTotalFeatures = numTotal
	p.rawColumns = computeRawColumns(numOriginal, numTotal, catIDs, keepRaw)
	p.state.SetFitted()

	return p, nil
}

func applyColumnMapping(enc Encoder, mapStr string) error {
	if mapStr == "" {
		return nil
	}
	for _, pair := range strings.Fields(mapStr) {
		fidStr, colStr, ok := strings.Cut(pair, ":")
		if !ok {
			return scigoErrors.NewModelFormatError("DeserializeLine", "malformed column mapping entry: "+pair)
		}
		fid, ferr := strconv.Atoi(fidStr)
		if ferr != nil {
			return scigoErrors.NewModelFormatError("DeserializeLine", "malformed column mapping entry: "+pair)
		}
		col, cerr := strconv.Atoi(colStr)
		if cerr != nil {
			return scigoErrors.NewModelFormatError("DeserializeLine", "malformed column mapping entry: "+pair)
		}
		enc.setOutputColumn(fid, col)
	}
	return nil
}

// computeRawColumns reconstructs the keep_raw passthrough column ids,
// which the wire format doesn't need to carry explicitly: they always
// occupy the numOriginalFeatures + |C|*|E| .. numTotalFeatures-1 range, in
// ascending categorical feature id order, the same layout FinishProcess
// assigns them in.
func computeRawColumns(numOriginal, numTotal int, catIDs []int, keepRaw bool) map[int]int {
	if !keepRaw {
		return nil
	}
	start := numTotal - len(catIDs)
	if start < numOriginal {
		start = numOriginal
	}
	raw := make(map[int]int, len(catIDs))
	for i, fid := range catIDs {
		raw[fid] = start + i
	}
	return raw
}

func requireField(op string, m map[string]string, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", scigoErrors.NewModelFormatError(op, "missing required field: "+key)
	}
	return v, nil
}

func requireInt(op string, m map[string]string, key string) (int, error) {
	v, err := requireField(op, m, key)
	if err != nil {
		return 0, err
	}
	n, cerr := strconv.Atoi(v)
	if cerr != nil {
		return 0, scigoErrors.NewModelFormatError(op, "malformed integer field "+key+": "+v)
	}
	return n, nil
}

func requireFloat(op string, m map[string]string, key string) (float64, error) {
	v, err := requireField(op, m, key)
	if err != nil {
		return 0, err
	}
	f, ferr := strconv.ParseFloat(v, 64)
	if ferr != nil {
		return 0, scigoErrors.NewModelFormatError(op, "malformed float field "+key+": "+v)
	}
	return f, nil
}

func requireBool(op string, m map[string]string, key string) (bool, error) {
	v, err := requireField(op, m, key)
	if err != nil {
		return false, err
	}
	b, berr := strconv.ParseBool(v)
	if berr != nil {
		return false, scigoErrors.NewModelFormatError(op, "malformed boolean field "+key+": "+v)
	}
	return b, nil
}

// jsonMapping is one categorical_feature_index_to_encoded_feature_index
// entry in the JSON form.
type jsonMapping struct {
	CatFid     int `json:"cat_fid"`
	ConvertFid int `json:"convert_fid"`
}

// jsonEncoder is one entry of the JSON form's "encoders" array.
type jsonEncoder struct {
	Name    string        `json:"name"`
	Prior   *float64      `json:"prior,omitempty"`
	Mapping []jsonMapping `json:"categorical_feature_index_to_encoded_feature_index"`
}

// jsonProvider is the JSON form's document shape. num_original_features
// and num_total_features extend the field list spec.md gives, needed to
// make deserialize(serialize(P)) == P hold on NumOriginalFeatures and
// NumTotalFeatures too, not just the encoder mappings.
type jsonProvider struct {
	NumOriginalFeatures int           `json:"num_original_features"`
	NumTotalFeatures    int           `json:"num_total_features"`
	PriorWeight         float64       `json:"prior_weight"`
	KeepRaw             bool          `json:"keep_raw"`
	CategoricalFeatures []int         `json:"categorical_features"`
	FoldPrior           []float64     `json:"fold_prior"`
	Encoders            []jsonEncoder `json:"encoders"`
}

// SerializeJSON writes the frozen Provider's JSON form to w.
func (p *Provider) SerializeJSON(w io.Writer) error {
	if !p.state.IsFitted() {
		return scigoErrors.NewNotFittedError("Provider", "SerializeJSON")
	}

	catIDs := p.cfg.CategoricalFeatureIDs()
	doc := jsonProvider{
		NumOriginalFeatures: p.numOriginalFeatures,
		NumTotalFeatures:    p.numTotalFeatures,
		PriorWeight:         p.cfg.PriorWeight(),
		KeepRaw:             p.cfg.KeepRaw(),
		CategoricalFeatures: catIDs,
		FoldPrior:           make([]float64, p.cfg.K()),
	}
	for f := 0; f < p.cfg.K(); f++ {
		doc.FoldPrior[f] = p.folds.FoldPrior(f)
	}

	for _, enc := range p.encoders {
		je := jsonEncoder{Name: enc.Kind().String()}
		if pv, ok := enc.priorValue(); ok {
			je.Prior = &pv
		}
		for _, fid := range catIDs {
			col, ok := enc.OutputColumn(fid)
			if !ok {
				continue
			}
			je.Mapping = append(je.Mapping, jsonMapping{CatFid: fid, ConvertFid: col})
		}
		doc.Encoders = append(doc.Encoders, je)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return scigoErrors.NewFatalError("Provider.SerializeJSON", err)
	}
	return nil
}

// DeserializeJSON reconstructs a frozen Provider from SerializeJSON's
// output.
func DeserializeJSON(r io.Reader) (*Provider, error) {
	const op = "DeserializeJSON"

	var doc jsonProvider
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, scigoErrors.NewModelFormatError(op, "malformed JSON: "+err.Error())
	}
	if len(doc.Encoders) == 0 {
		return nil, scigoErrors.NewModelFormatError(op, "no encoders present")
	}

	kinds := make([]EncoderKind, len(doc.Encoders))
	for i, je := range doc.Encoders {
		kind, err := EncoderKindFromTag(je.Name)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	var targetPrior float64
	for i, je := range doc.Encoders {
		if kinds[i] == TargetEncoderKind {
			if je.Prior == nil {
				return nil, scigoErrors.NewModelFormatError(op, "target_encoder entry missing prior")
			}
			targetPrior = *je.Prior
		}
	}

	cfg, err := NewConfig(len(doc.FoldPrior), doc.CategoricalFeatures, kinds,
		WithPriorWeight(doc.PriorWeight), WithTargetPrior(targetPrior), WithKeepRaw(doc.KeepRaw))
	if err != nil {
		return nil, err
	}
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	for i, enc := range p.encoders {
		je := doc.Encoders[i]
		if tlm, ok := enc.(*TargetLabelMeanEncoder); ok {
			if je.Prior == nil {
				return nil, scigoErrors.NewModelFormatError(op, "target_encoder_label_mean entry missing prior")
			}
			tlm.SetPrior(*je.Prior)
		}
		for _, m := range je.Mapping {
			enc.setOutputColumn(m.CatFid, m.ConvertFid)
		}
	}

	p.folds.foldPrior = append([]float64(nil), doc.FoldPrior...)
	p.numOriginalFeatures = doc.NumOriginalFeatures
	p.numTotalFeatures = doc.NumTotalFeatures
	p.rawColumns = computeRawColumns(doc.NumOriginalFeatures, doc.NumTotalFeatures, doc.CategoricalFeatures, doc.KeepRaw)
	p.state.SetFitted()

	return p, nil
}
