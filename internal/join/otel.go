package join

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/JYF/edmap/internal/join"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
