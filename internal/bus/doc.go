// Package bus implements the dashboard's subscription registry and message dispatcher.
//
// It sits between the broker connection and the state stores:
//
//	broker → mqtt.Manager → Dispatcher.OnMessage → Registry.Match → handlers
//
// # Events
//
// Every inbound payload is decoded once into an Event. The Event carries the
// raw data plus a tagged Payload chosen from the event type (falling back to
// the topic family when the type is absent):
//
//   - SensorReading      sensor.*            {value, unit?, label?}
//   - AgentLog           agent.log           {agent?, level?, message?}
//   - RepoActivity       repo.*              {repo?, title?, author?, ref?, url?}
//   - ContainerSnapshot  infra.docker.state  [{id, names, image, state, status}]
//   - Unknown            anything else, or a known type whose data has the wrong shape
//
// Consumers type-switch on Payload and ignore variants they do not handle.
//
// # Subscriptions
//
// Registry.Subscribe compiles the pattern once, and the first registration on a
// pattern asks the Transport to subscribe at the broker. Further registrations
// on the same pattern share that transport subscription. Cancelling the last
// registration releases it. Cancel is idempotent.
//
// # Failure isolation
//
// A malformed payload is logged and dropped. A handler that returns an error or
// panics is logged; the remaining handlers for the same message still run.
//
// # Usage
//
//	reg := bus.NewRegistry(manager)
//	disp := bus.NewDispatcher(reg)
//	manager.SetMessageHandler(disp.OnMessage)
//
//	sub, err := reg.Subscribe("sensor/+/+", func(ev bus.Event) error {
//	    reading, ok := ev.Payload.(bus.SensorReading)
//	    if !ok {
//	        return nil
//	    }
//	    store.Upsert(ev.Topic, reading.Value, reading.Unit, reading.Label)
//	    return nil
//	})
//	defer sub.Cancel()
package bus
