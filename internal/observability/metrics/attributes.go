package metrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

var sensitiveLabelKeys = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"payment_reference",
}

// FilterAttributes drops sensitive or high-cardinality labels before they
// reach the metrics backend.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isSensitiveLabel(string(attr.Key)) {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

func isSensitiveLabel(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveLabelKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
