// Package mqtt provides MQTT client connectivity for meshconsole.
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
// The console consumes device telemetry events from the cloud gateway's
// broker and publishes commands back through it. The broker decouples the
// console from the device transport (LoRa, BLE mesh, simulators).
//
//	Devices ↔ Gateway ↔ MQTT Broker ↔ meshconsole
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device events for the application
//	err = client.Subscribe(mqtt.Topics{}.AllAppEvents("doppelgaenger"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.SensorCommand("doppelgaenger", "dev-1")
//	client.Publish(topic, []byte(`{"display":25}`), 1, false)
package mqtt
