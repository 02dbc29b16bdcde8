package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// tokenPattern matches terms of at least two word characters, mirroring
// the tokenizer the vectorizer artifact was fitted with.
var tokenPattern = regexp.MustCompile(`[a-z0-9_]{2,}`)

// vectorizer maps text to an L2-normalized TF-IDF feature vector using a
// fitted vocabulary and per-term inverse document frequencies.
type vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// linearModel is the decision function of a fitted linear classifier:
// a weight per vocabulary term plus an intercept. A positive score means
// the positive (phishing) class.
type linearModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// loadVectorizer reads and validates a vectorizer artifact.
func loadVectorizer(path string) (*vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectorizer artifact: %w", err)
	}

	var v vectorizer
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse vectorizer artifact: %w", err)
	}

	if len(v.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer artifact has an empty vocabulary")
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return nil, fmt.Errorf("vectorizer term %q has index %d outside idf table of length %d", term, idx, len(v.IDF))
		}
	}

	return &v, nil
}

// loadModel reads and validates a linear model artifact against the
// vectorizer it will be paired with.
func loadModel(path string, featureCount int) (*linearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var m linearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if len(m.Coefficients) != featureCount {
		return nil, fmt.Errorf("model has %d coefficients, vectorizer has %d features", len(m.Coefficients), featureCount)
	}

	return &m, nil
}

// transform converts text into a sparse L2-normalized TF-IDF vector.
// Terms outside the fitted vocabulary are dropped.
func (v *vectorizer) transform(text string) map[int]float64 {
	features := make(map[int]float64)
	for _, term := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		idx, ok := v.Vocabulary[term]
		if !ok {
			continue
		}
		features[idx] += v.IDF[idx]
	}

	var norm float64
	for _, val := range features {
		norm += val * val
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range features {
			features[idx] /= norm
		}
	}

	return features
}

// decide computes the decision-function score for a feature vector.
func (m *linearModel) decide(features map[int]float64) float64 {
	score := m.Intercept
	for idx, val := range features {
		score += m.Coefficients[idx] * val
	}
	return score
}
