// Package monitor keeps device reachability current.
//
// A Monitor probes every device with an IP address on a fixed wall-clock
// cadence. Probes run concurrently up to a configured limit and never
// wait on one another. A failed probe leaves the device's previous state
// in place and is logged at debug level only.
//
// A tick that fires while a cycle is still running joins that cycle
// rather than starting another. Stop cancels whatever is in flight and
// waits for it to unwind.
//
// Every probe result is handed to the registered Notifiers, which forward
// it to WebSocket clients, MQTT, InfluxDB and the status history.
package monitor
