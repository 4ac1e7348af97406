package pipeline

import (
	"testing"

	"tubearchivist/internal/config"
)

func TestWithHooksLeavesSharedInstance(t *testing.T) {
	shared := New(nil, nil, nil, config.Defaults(), nil)

	hooked := shared.WithHooks(func() bool { return true }, func(string) {})

	if shared.Stop != nil || shared.Notify != nil {
		t.Fatalf("shared pipeline picked up per-run hooks")
	}
	if hooked.Stop == nil || hooked.Notify == nil {
		t.Fatalf("hooked copy missing callbacks")
	}
	if !hooked.Stop() {
		t.Fatalf("hooked copy not polling the given stop callback")
	}
}
