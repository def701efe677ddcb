package floor

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"landfilter/internal/model"
)

// Extractor wraps Extract with diagnostics for text no pattern recognizes
type Extractor struct {
	logger *zap.Logger
	misses prometheus.Counter
}

// NewExtractor creates an extractor. Both arguments may be nil.
func NewExtractor(logger *zap.Logger, misses prometheus.Counter) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger: logger,
		misses: misses,
	}
}

// Extract parses text, recording a miss when nothing matched
func (e *Extractor) Extract(text string) model.FloorDescriptor {
	d, ok := extract(text)
	if !ok {
		e.logger.Debug("floor text not recognized", zap.String("raw_text", d.RawText))
		if e.misses != nil {
			e.misses.Inc()
		}
	}
	return d
}
