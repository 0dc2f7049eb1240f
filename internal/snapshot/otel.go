package snapshot

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/railwatch/trainview/internal/snapshot"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
