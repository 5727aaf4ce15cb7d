// Package topic provides MQTT-style topic pattern matching for the dashboard event bus.
//
// # Topic Format
//
// Topics are '/'-delimited routing addresses:
//
//	sensor/cpu/temp
//	agent/TrendScout/log
//	repo/catalyst/event
//
// # Wildcards
//
// Patterns use the broker's wildcard syntax unchanged:
//
//   - "+" matches exactly one non-empty segment
//   - "#" matches zero or more remaining segments and may only appear last
//
// Examples:
//
//	sensor/+/temp   matches sensor/cpu/temp (not sensor/cpu/sub/temp)
//	repo/#          matches repo, repo/catalyst, repo/org/name/event
//	#               matches everything
//
// # Usage
//
// For one-off checks use Matches. Long-lived subscriptions should compile their
// pattern once and reuse it for every inbound message:
//
//	p, err := topic.Compile("sensor/+/+")
//	if err != nil {
//	    return err
//	}
//	if p.Match("sensor/cpu/temp") {
//	    // deliver
//	}
package topic
