package query

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/railwatch/trainview/internal/query"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
