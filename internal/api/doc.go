// Package api implements the HTTP REST API and WebSocket server for netmap.
//
// This package provides:
//   - REST endpoints for devices, connections, discovery, configuration
//     files, the topology projection and the audit trail
//   - WebSocket hub broadcasting status, inventory and discovery events
//   - Middleware stack (request ID, logging, metrics, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Errors
//
// Every failure uses the Error envelope. Domain sentinels map to
// validation_error (400), not_found (404), conflict (409) and
// scan_failed (502); anything unexpected is logged and returned as
// internal_error (500) without detail.
//
// # Graceful Degradation
//
// MQTT, InfluxDB, the audit trail and discovery are optional. Routes
// backed by a missing component answer 503; the rest keep working.
package api
