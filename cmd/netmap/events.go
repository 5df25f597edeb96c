package main

import (
	"context"
	"time"

	"github.com/nerrad567/netmap-core/internal/discovery"
	"github.com/nerrad567/netmap-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/netmap-core/internal/infrastructure/logging"
	"github.com/nerrad567/netmap-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/netmap-core/internal/monitor"
)

// deviceStatusMessage is the retained payload of netmap/device/{id}/status.
type deviceStatusMessage struct {
	DeviceID  string `json:"device_id"`
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address,omitempty"`
	IsOnline  bool   `json:"is_online"`
	Method    string `json:"method"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// mqttEvents publishes status transitions and scan results to the broker.
// It implements monitor.Notifier and discovery.Observer.
type mqttEvents struct {
	client *mqtt.Client
	log    *logging.Logger
}

// StatusObserved publishes the new state of a device, retained so new
// subscribers see it immediately.
func (e *mqttEvents) StatusObserved(_ context.Context, ev monitor.Event) {
	if !e.client.IsConnected() {
		return
	}
	msg := deviceStatusMessage{
		DeviceID:  ev.Device.ID,
		Hostname:  ev.Device.Hostname,
		IPAddress: ev.Device.IP(),
		IsOnline:  ev.Result.Online,
		Method:    ev.Result.Method,
		Source:    ev.Source,
		Timestamp: eventTime(ev.At).Format(time.RFC3339),
	}
	if err := e.client.PublishJSON(mqtt.Topics{}.DeviceStatus(ev.Device.ID), msg, true); err != nil {
		e.log.Warn("publishing device status failed", "device_id", ev.Device.ID, "error", err)
	}
}

// ScanCompleted publishes the candidates of a finished scan.
func (e *mqttEvents) ScanCompleted(_ context.Context, result *discovery.ScanResult) {
	if !e.client.IsConnected() {
		return
	}
	payload := map[string]any{
		"subnet":     result.Subnet,
		"candidates": result.Candidates,
		"count":      len(result.Candidates),
		"timestamp":  eventTime(result.At).Format(time.RFC3339),
	}
	if err := e.client.PublishJSON(mqtt.Topics{}.DiscoveryResult(), payload, false); err != nil {
		e.log.Warn("publishing discovery result failed", "subnet", result.Subnet, "error", err)
	}
}

// influxEvents writes probe samples and scan summaries to InfluxDB.
type influxEvents struct {
	client *influxdb.Client
}

// StatusObserved writes one reachability sample.
func (e *influxEvents) StatusObserved(_ context.Context, ev monitor.Event) {
	e.client.WriteReachability(influxdb.Reachability{
		DeviceID: ev.Device.ID,
		Hostname: ev.Device.Hostname,
		IP:       ev.Device.IP(),
		Online:   ev.Result.Online,
		Method:   ev.Result.Method,
		Latency:  ev.Result.Latency,
		Source:   ev.Source,
		At:       ev.At,
	})
}

// ScanCompleted writes the scan summary.
func (e *influxEvents) ScanCompleted(_ context.Context, result *discovery.ScanResult) {
	e.client.WriteScanSummary(influxdb.ScanSummary{
		Subnet:     result.Subnet,
		Swept:      result.Swept,
		Responsive: result.Responsive,
		New:        len(result.Candidates),
		Duration:   result.Duration,
		At:         result.At,
	})
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
