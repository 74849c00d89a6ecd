package shared_test

import (
	"testing"
	"time"

	"hotel_finder/internal/shared"
)

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("RAPID_API_KEY", "")

	_, err := shared.Load()
	if err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("RAPID_API_KEY", "key")
	t.Setenv("MAX_RESULTS", "not-a-number")
	t.Setenv("PROVIDER_TIMEOUT_SECONDS", "")

	c, err := shared.Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.ProviderTimeout != 20*time.Second {
		t.Fatalf("provider timeout: %v", c.ProviderTimeout)
	}
	if c.MaxResults != 10 {
		t.Fatalf("expected default max results, got %d", c.MaxResults)
	}
	if len(c.Commands) == 0 || c.Commands[0].Name != "start" {
		t.Fatalf("unexpected command registry: %+v", c.Commands)
	}
}
