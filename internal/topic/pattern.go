package topic

import (
	"fmt"
	"strings"
)

// Wildcard segments.
const (
	// WildcardSingle matches exactly one non-empty segment.
	WildcardSingle = "+"

	// WildcardMulti matches zero or more trailing segments.
	WildcardMulti = "#"

	// Separator delimits topic segments.
	Separator = "/"
)

// Pattern is a validated, pre-split subscription pattern.
//
// A Pattern is immutable after Compile and safe for concurrent use.
type Pattern struct {
	raw      string
	segments []string // segments before a trailing '#'
	multi    bool     // pattern ends with '#'
}

// Compile validates a pattern and splits it once for reuse.
//
// Rules:
//   - the pattern must be non-empty
//   - '#' may only appear as the final segment
//   - '+' and '#' must occupy a whole segment ("a/b+" is rejected)
func Compile(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, ErrEmptyPattern
	}

	parts := strings.Split(pattern, Separator)
	p := Pattern{raw: pattern}

	for i, seg := range parts {
		switch {
		case seg == WildcardMulti:
			if i != len(parts)-1 {
				return Pattern{}, fmt.Errorf("%w: %q has '#' before the last segment", ErrInvalidPattern, pattern)
			}
			p.multi = true
			continue
		case seg == WildcardSingle:
		case strings.ContainsAny(seg, WildcardSingle+WildcardMulti):
			return Pattern{}, fmt.Errorf("%w: %q mixes a wildcard into segment %q", ErrInvalidPattern, pattern, seg)
		}
		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// String returns the pattern as it was compiled.
func (p Pattern) String() string {
	return p.raw
}


// Match reports whether a concrete topic matches the pattern.
// The zero Pattern matches nothing.
func (p Pattern) Match(topic string) bool {
	if p.raw == "" || topic == "" {
		return false
	}

	levels := strings.Split(topic, Separator)

	if len(levels) < len(p.segments) {
		return false
	}
	if !p.multi && len(levels) != len(p.segments) {
		return false
	}

	for i, seg := range p.segments {
		switch seg {
		case WildcardSingle:
			if levels[i] == "" {
				return false
			}
		default:
			if seg != levels[i] {
				return false
			}
		}
	}

	return true
}

// Matches reports whether topic matches pattern.
// An invalid pattern never matches.
func Matches(pattern, topic string) bool {
	p, err := Compile(pattern)
	if err != nil {
		return false
	}
	return p.Match(topic)
}
