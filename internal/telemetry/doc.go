// Package telemetry holds the dashboard's aggregate state.
//
// Every store is derived from the event stream and bounded:
//
//   - SensorStore     one entry per sensor id, last 20 readings each
//   - AgentActivity   last 50 agent log lines, oldest first
//   - RepoFeed        last 50 repository events, newest first
//   - ContainerBoard  latest container list, replaced wholesale
//
// Stores never shrink except by eviction; a sensor, once discovered, stays
// until the process exits. Readers always receive copies.
//
// Dashboard wires the stores to bus subscriptions:
//
//	dash := telemetry.NewDashboard(telemetry.ConfigFrom(cfg))
//	if err := dash.Attach(registry); err != nil {
//	    return err
//	}
//	defer dash.Detach()
package telemetry
