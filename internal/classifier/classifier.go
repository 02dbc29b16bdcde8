// Package classifier runs the pre-trained phishing model over message
// text. The model is two artifacts exported at training time: a TF-IDF
// vectorizer (vocabulary + idf table) and a linear decision function.
package classifier

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/pkg/types"
)

// Local classifies text in-process using artifacts loaded from disk.
// Artifacts are loaded once, on first use; concurrent first calls share
// a single load. Load and inference failures are returned to the caller
// rather than mapped to a label — the ingestion layer decides how to
// degrade.
type Local struct {
	vectorizerPath string
	modelPath      string
	logger         *logrus.Logger

	once    sync.Once
	vec     *vectorizer
	model   *linearModel
	loadErr error
}

// NewLocal creates a classifier that will load its artifacts from the
// given paths on first Predict call.
func NewLocal(vectorizerPath, modelPath string, logger *logrus.Logger) *Local {
	return &Local{
		vectorizerPath: vectorizerPath,
		modelPath:      modelPath,
		logger:         logger,
	}
}

// load reads both artifacts. Called exactly once per process through
// c.once; a failure is cached so every later call reports it.
func (c *Local) load() {
	vec, err := loadVectorizer(c.vectorizerPath)
	if err != nil {
		c.loadErr = err
		return
	}

	model, err := loadModel(c.modelPath, len(vec.IDF))
	if err != nil {
		c.loadErr = err
		return
	}

	c.vec = vec
	c.model = model
	c.logger.WithFields(logrus.Fields{
		"vocabulary": len(vec.Vocabulary),
		"model":      c.modelPath,
	}).Info("Classifier artifacts loaded")
}

// Predict classifies text as phishing or not_phishing. An error means
// the model could not be loaded or applied; no label is produced.
func (c *Local) Predict(text string) (types.Label, error) {
	c.once.Do(c.load)
	if c.loadErr != nil {
		return "", fmt.Errorf("classifier unavailable: %w", c.loadErr)
	}

	features := c.vec.transform(text)
	if c.model.decide(features) > 0 {
		return types.LabelPhishing, nil
	}
	return types.LabelNotPhishing, nil
}
