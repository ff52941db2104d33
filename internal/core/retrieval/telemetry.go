package retrieval

import (
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// Telemetry receives advisory per-query signals. Implementations must never
// block; failures here must not affect the search outcome.
type Telemetry interface {
	StageCompleted(category domain.Category, stage string, count int, elapsed time.Duration)
	StageFailed(category domain.Category, stage string)
	SearchCompleted(category domain.Category, results int, degraded bool, elapsed time.Duration)
}

type noopTelemetry struct{}

func (noopTelemetry) StageCompleted(domain.Category, string, int, time.Duration) {}
func (noopTelemetry) StageFailed(domain.Category, string)                        {}
func (noopTelemetry) SearchCompleted(domain.Category, int, bool, time.Duration)  {}

// NopTelemetry is the default sink when no metrics backend is wired.
func NopTelemetry() Telemetry { return noopTelemetry{} }
