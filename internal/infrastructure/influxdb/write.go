package influxdb

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// stateMeasurement is the measurement name for poll-cycle samples.
const stateMeasurement = "adr_state"

// WriteCycleSample mirrors one poll cycle's readings to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// NaN readings are omitted: the line protocol has no NaN encoding, and a
// failed sensor read should not poison the batch it rides in. A cycle
// whose readings are all NaN writes nothing.
//
// Parameters:
//   - adr: Fridge name, used as the series tag (e.g., "shasta")
//   - at: Cycle timestamp
//   - readings: Field name to value (e.g., "t_faa" -> 0.102)
//
// Example:
//
//	client.WriteCycleSample("shasta", sampledAt, map[string]float64{
//	    "t_faa":      0.102,
//	    "ps_current": 6.3,
//	})
func (c *Client) WriteCycleSample(adr string, at time.Time, readings map[string]float64) {
	if !c.IsConnected() {
		return
	}

	fields := cycleFields(readings)
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		stateMeasurement,
		map[string]string{"adr": adr},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}

// cycleFields converts readings to a field map, dropping NaN values.
func cycleFields(readings map[string]float64) map[string]interface{} {
	fields := make(map[string]interface{}, len(readings))
	for name, value := range readings {
		if math.IsNaN(value) {
			continue
		}
		fields[name] = value
	}
	return fields
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("compressor_stats",
//	    map[string]string{"adr": "shasta"},
//	    map[string]interface{}{"water_temp_c": 18.2, "duty_cycle": 0.4})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
