package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsDisallowedKeys(t *testing.T) {
	filtered := FilterAttributes(
		attribute.String("role", "sponsor_admin"),
		attribute.String("email", "user@example.com"),
		attribute.String("reason", "expired"),
	)

	if len(filtered) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(filtered))
	}
	for _, attr := range filtered {
		if attr.Key == "email" {
			t.Fatalf("email label must not survive filtering")
		}
	}
}
