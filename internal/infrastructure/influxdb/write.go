package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementReachability = "device_reachability"
	MeasurementScan         = "discovery_scan"
)

// Reachability is one probe observation.
type Reachability struct {
	DeviceID string
	Hostname string
	IP       string
	Online   bool
	Method   string // localhost, ping, arp or none
	Latency  time.Duration
	Source   string // monitor or check
	At       time.Time
}

// ScanSummary describes one completed subnet scan.
type ScanSummary struct {
	Subnet     string
	Swept      int
	Responsive int
	New        int
	Duration   time.Duration
	At         time.Time
}

// WriteReachability records a probe result.
//
// Tags are low-cardinality identifiers (device, method, source); the
// online flag and latency are fields.
func (c *Client) WriteReachability(r Reachability) {
	online := 0
	if r.Online {
		online = 1
	}
	c.writePoint(MeasurementReachability,
		map[string]string{
			"device_id": r.DeviceID,
			"hostname":  r.Hostname,
			"method":    r.Method,
			"source":    r.Source,
		},
		map[string]any{
			"online":     online,
			"ip_address": r.IP,
			"latency_ms": float64(r.Latency) / float64(time.Millisecond),
		},
		r.At,
	)
}

// WriteScanSummary records the outcome of a discovery scan.
func (c *Client) WriteScanSummary(s ScanSummary) {
	c.writePoint(MeasurementScan,
		map[string]string{"subnet": s.Subnet},
		map[string]any{
			"swept":       s.Swept,
			"responsive":  s.Responsive,
			"new":         s.New,
			"duration_ms": s.Duration.Milliseconds(),
		},
		s.At,
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
