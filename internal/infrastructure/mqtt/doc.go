// Package mqtt provides MQTT client connectivity for the ADR control core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The core uses MQTT as its only external surface. GUIs and scripts send
// commands as request/response JSON and watch fire-and-forget events; the
// broker decouples them from the control loops.
//
//	GUI / scripts ↔ MQTT Broker ↔ ADR control core
//
// Topic layout (see topics.go):
//
//	adr/request/{command}      commands in (get-log, mag-up, regulate, ...)
//	adr/response/{request_id}  one reply per request
//	adr/event/{type}           state, log, magup, regulation notifications
//	adr/system/status          retained online/offline + LWT
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Receive all commands
//	err = client.Subscribe(mqtt.Topics{}.AllRequests(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish an event
//	topic := mqtt.Topics{}.Event(mqtt.EventRegulation)
//	client.Publish(topic, []byte(`{"event":"started"}`), 1, false)
package mqtt
