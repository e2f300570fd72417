// Package influxdb provides InfluxDB connectivity for meshconsole.
//
// It wraps the official influxdb-client-go v2 library with console-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for device telemetry:
//   - Battery levels as devices report them
//   - Sensor temperature readings
//
// The dispatcher's latest-state store only holds the newest value per device;
// InfluxDB keeps the history for dashboards and trend queries.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "meshconsole",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteBatteryLevel("dev-1", 0.73, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
package influxdb
