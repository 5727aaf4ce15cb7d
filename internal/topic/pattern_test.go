package topic

import (
	"errors"
	"testing"
)

// =============================================================================
// Matches Tests
// =============================================================================

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		want    bool
	}{
		{"single wildcard", "sensor/+/temp", "sensor/cpu/temp", true},
		{"single wildcard too deep", "sensor/+/temp", "sensor/cpu/sub/temp", false},
		{"multi wildcard deep", "repo/#", "repo/org/name/event", true},
		{"multi wildcard zero remaining", "repo/#", "repo", true},
		{"multi wildcard one remaining", "repo/#", "repo/catalyst", true},
		{"multi wildcard prefix mismatch", "repo/#", "repository/x", false},
		{"bare multi wildcard", "#", "anything/at/all", true},
		{"exact literal", "infra/docker/state", "infra/docker/state", true},
		{"literal case sensitive", "sensor/CPU/temp", "sensor/cpu/temp", false},
		{"pattern longer than topic", "sensor/+/+", "sensor/cpu", false},
		{"topic longer than pattern", "sensor/+", "sensor/cpu/temp", false},
		{"plus rejects empty segment", "sensor/+/temp", "sensor//temp", false},
		{"two plus segments", "sensor/+/+", "sensor/memory/usage", true},
		{"plus then multi", "agent/+/#", "agent/TrendScout", true},
		{"invalid pattern never matches", "repo/#/x", "repo/a/x", false},
		{"empty pattern", "", "sensor/cpu", false},
		{"empty topic", "sensor/+", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.topic); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
			}
		})
	}
}

func TestMatchesDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		if !Matches("sensor/+/temp", "sensor/cpu/temp") {
			t.Fatal("Matches() changed its answer between calls")
		}
	}
}

// =============================================================================
// Compile Tests
// =============================================================================

func TestCompileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{"empty", "", ErrEmptyPattern},
		{"multi not last", "repo/#/event", ErrInvalidPattern},
		{"plus inside segment", "sensor/cpu+/temp", ErrInvalidPattern},
		{"hash inside segment", "repo/a#", ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile(%q) error = %v, want %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}

func TestCompileReuse(t *testing.T) {
	p, err := Compile("agent/+/log")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if p.String() != "agent/+/log" {
		t.Errorf("String() = %q, want %q", p.String(), "agent/+/log")
	}

	topics := map[string]bool{
		"agent/TrendScout/log": true,
		"agent/infra/log":      true,
		"agent/infra/output":   false,
		"agent/log":            false,
	}
	for topic, want := range topics {
		if got := p.Match(topic); got != want {
			t.Errorf("Match(%q) = %v, want %v", topic, got, want)
		}
	}
}

func TestZeroPatternMatchesNothing(t *testing.T) {
	var p Pattern
	if p.Match("sensor/cpu/temp") {
		t.Error("zero Pattern matched a topic")
	}
}
