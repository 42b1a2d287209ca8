// Package influxdb provides InfluxDB connectivity for the ADR core.
//
// It wraps the official influxdb-client-go v2 library with the core's
// patterns for connection management, sample writing, and health monitoring.
//
// # Purpose
//
// This package mirrors poll-cycle readings to a time-series store so
// dashboards can chart temperatures and magnet state without parsing
// the on-disk binary record. The binary record stays authoritative;
// the mirror is best effort and optional.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "coldstage",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror one poll cycle
//	client.WriteCycleSample("shasta", time.Now(), map[string]float64{
//	    "t_faa": 0.102, "ps_current": 6.3,
//	})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This keeps the once-a-second sample stream off the
// network's critical path.
package influxdb
