package model_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/ezoic/scigo/core/model"
)

// fixtureModel is a minimal gob-able estimator, exercising SaveModel's
// contract of a pointer to a struct whose exported fields hold the model
// state, without coupling this infrastructure test to any real estimator.
type fixtureModel struct {
	Coefficients []float64
	Intercept    float64
	Fitted       bool
}

func (m *fixtureModel) Predict(x []float64) float64 {
	pred := m.Intercept
	for i, c := range m.Coefficients {
		if i < len(x) {
			pred += c * x[i]
		}
	}
	return pred
}

func newFittedFixture() *fixtureModel {
	return &fixtureModel{Coefficients: []float64{2.0, -1.5}, Intercept: 0.5, Fitted: true}
}

func TestSaveLoadModel(t *testing.T) {
	m := newFittedFixture()
	testX := []float64{5.0, 1.0}
	originalPred := m.Predict(testX)

	tmpFile := "test_model.gob"
	defer func() { _ = os.Remove(tmpFile) }()

	if err := model.SaveModel(m, tmpFile); err != nil {
		t.Fatalf("Failed to save model: %v", err)
	}

	loaded := &fixtureModel{}
	if err := model.LoadModel(loaded, tmpFile); err != nil {
		t.Fatalf("Failed to load model: %v", err)
	}

	loadedPred := loaded.Predict(testX)
	if originalPred != loadedPred {
		t.Errorf("Predictions do not match: original=%v, loaded=%v", originalPred, loadedPred)
	}
	if !loaded.Fitted {
		t.Error("Loaded model should be fitted")
	}
}

func TestSaveLoadModelToWriter(t *testing.T) {
	m := newFittedFixture()
	testX := []float64{5.0, 6.0}
	originalPred := m.Predict(testX)

	var buf bytes.Buffer
	if err := model.SaveModelToWriter(m, &buf); err != nil {
		t.Fatalf("Failed to save model to writer: %v", err)
	}

	loaded := &fixtureModel{}
	if err := model.LoadModelFromReader(loaded, &buf); err != nil {
		t.Fatalf("Failed to load model from reader: %v", err)
	}

	loadedPred := loaded.Predict(testX)
	if originalPred != loadedPred {
		t.Errorf("Predictions do not match: original=%v, loaded=%v", originalPred, loadedPred)
	}
}

func TestLoadModelFileNotFound(t *testing.T) {
	loaded := &fixtureModel{}
	err := model.LoadModel(loaded, "nonexistent_file.gob")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
	if err != nil && !bytes.Contains([]byte(err.Error()), []byte("failed to open file")) {
		t.Errorf("Expected error to contain 'failed to open file', got: %v", err)
	}
}

func TestSaveModelInvalidPath(t *testing.T) {
	m := newFittedFixture()
	err := model.SaveModel(m, "/invalid/path/model.gob")
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
	if err != nil && !bytes.Contains([]byte(err.Error()), []byte("failed to create file")) {
		t.Errorf("Expected error to contain 'failed to create file', got: %v", err)
	}
}
