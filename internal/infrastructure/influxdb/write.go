package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBatteryLevel records a device's reported battery level.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "dev-1")
//   - level: Battery level as a fraction (0.0 to 1.0)
//   - timestamp: When the device reported the reading
func (c *Client) WriteBatteryLevel(deviceID string, level float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"level": level,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteSensorTemperature records a device's sensor temperature reading.
//
// Parameters:
//   - deviceID: Device identifier
//   - temperature: Temperature in degrees Celsius
//   - timestamp: When the device reported the reading
func (c *Client) WriteSensorTemperature(deviceID string, temperature float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"temperature": temperature,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("session_stats",
//	    map[string]string{"host": "console-01"},
//	    map[string]interface{}{"active_sessions": 12})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
