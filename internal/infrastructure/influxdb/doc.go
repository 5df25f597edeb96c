// Package influxdb records reachability time series for netmap-core.
//
// Every probe result becomes a point in the "device_reachability"
// measurement and every subnet scan a point in "discovery_scan", so the
// history of the network can be graphed outside the service. InfluxDB is
// optional (influxdb.enabled); a nil or disconnected client drops writes.
//
// Writes use the non-blocking batched WriteAPI. Failures surface through
// the SetOnError callback rather than return values.
package influxdb
