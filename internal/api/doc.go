// Package api exposes the ADR core's command surface over MQTT.
//
// Clients publish a RequestMessage to adr/request/{command}; the core
// replies on adr/response/{request_id}. Lifecycle notifications fan out
// under adr/event/ independently of any request.
//
// # Architecture
//
//	                 adr/request/+
//	      client ───────────────────▶ Server ──▶ handlers
//	                                     │           │ state.Store reads
//	                 adr/response/{id}   │           │ controller start/cancel
//	      client ◀───────────────────────┘           │ settings mutation
//	                                                 ▼
//	                 adr/event/{state,log,magup,regulation}
//	      client ◀─────────────────── EventPublisher
//
// # Key Types
//
//   - Server: subscribes to the request topics and dispatches commands.
//   - RequestMessage / ResponseMessage: the request/response envelope.
//   - EventPublisher: pushes controller lifecycle events, poll-cycle
//     notifications, and operator log entries to the event topics.
//
// # Commands
//
// Snapshot reads (pscurrent, psvoltage, magnetv, cycle, time,
// temperatures, get-state-var) answer from the latest poll sample and
// never touch an instrument. Control commands (mag-up, regulate,
// cancel-mag-up, cancel-regulation) invoke the controllers, whose guard
// rejections come back with code REJECTED and the operator log carries
// the detail. Settings commands (set-pid-kp/ki/kd, get-settings) read
// and mutate the live tunables.
//
// NaN readings have no JSON encoding and travel as null.
//
// # Usage
//
//	server, err := api.New(api.Deps{
//	    Broker:     mqttClient,
//	    Store:      store,
//	    Devices:    registry,
//	    Settings:   settings,
//	    Log:        elog,
//	    MagUp:      magup,
//	    Regulation: regulation,
//	    Runs:       historyRepo,
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := server.Start(ctx); err != nil {
//	    return err
//	}
package api
