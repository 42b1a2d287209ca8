// Package telemetry persists the per-cycle temperature record.
//
// Every poll cycle appends one fixed-width binary record to a file named
// for the process start time (temperatures_260825_1430.temps): the cycle
// timestamp and the four stage temperatures, five little-endian IEEE 754
// doubles, 40 bytes per record. NaN readings are written as NaN so the
// record stream never skips a cycle. This format is what the lab's
// existing plotting scripts read, so it is load-bearing.
//
// When an InfluxDB client is attached, each sample is also mirrored to
// the time-series store (minus NaN fields, which the line protocol
// cannot carry). The file stays authoritative; the mirror is best effort.
package telemetry
