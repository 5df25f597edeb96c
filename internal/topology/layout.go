package topology

import (
	"math"

	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
)

// Default layout geometry.
const (
	DefaultRadius  = 250.0
	DefaultCenterX = 400.0
	DefaultCenterY = 300.0
)

// Render palette.
const (
	ColorOnline  = "#d0f0c0"
	ColorOffline = "#f0d0c0"
	ColorStroke  = "#555"

	nodeBorder       = "1px solid #555"
	nodeBorderRadius = "5px"
	nodePadding      = "10px"
	nodeWidth        = 150

	elementType = "default"

	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// Options controls circle geometry.
type Options struct {
	Radius  float64 `json:"radius"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
}

// DefaultOptions returns R=250 centred on (400,300).
func DefaultOptions() Options {
	return Options{Radius: DefaultRadius, CenterX: DefaultCenterX, CenterY: DefaultCenterY}
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DeviceRef is the device summary carried by a node.
type DeviceRef struct {
	ID         string            `json:"id"`
	Hostname   string            `json:"hostname"`
	IPAddress  *string           `json:"ip_address"`
	DeviceType device.DeviceType `json:"device_type"`
	IsOnline   bool              `json:"is_online"`
}

// NodeLabel is the text shown on a node.
type NodeLabel struct {
	Hostname string `json:"hostname"`
	Status   string `json:"status"`
}

// NodeData is the payload of a node.
type NodeData struct {
	Label  NodeLabel `json:"label"`
	Device DeviceRef `json:"device"`
}

// NodeStyle is the visual style of a node.
type NodeStyle struct {
	Background   string `json:"background"`
	Border       string `json:"border"`
	BorderRadius string `json:"borderRadius"`
	Padding      string `json:"padding"`
	Width        int    `json:"width"`
}

// Node is one device on the canvas.
type Node struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Data     NodeData  `json:"data"`
	Position Position  `json:"position"`
	Style    NodeStyle `json:"style"`
	Pinned   bool      `json:"pinned,omitempty"`
}

// EdgeStyle is the visual style of an edge.
type EdgeStyle struct {
	Stroke string `json:"stroke"`
}

// Edge is one connection on the canvas.
type Edge struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Label    string    `json:"label"`
	Type     string    `json:"type"`
	Animated bool      `json:"animated"`
	Style    EdgeStyle `json:"style"`
}

// Graph is the projected render model.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Layout projects devices and connections onto a circle.
//
// Edges whose source or target is not among devices are dropped.
func Layout(devices []device.Device, connections []connection.Connection, opts Options) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(devices)),
		Edges: make([]Edge, 0, len(connections)),
	}

	present := make(map[string]struct{}, len(devices))
	n := float64(len(devices))
	for i := range devices {
		d := &devices[i]
		angle := float64(i) / n * 2 * math.Pi
		g.Nodes = append(g.Nodes, newNode(d, Position{
			X: opts.Radius*math.Cos(angle) + opts.CenterX,
			Y: opts.Radius*math.Sin(angle) + opts.CenterY,
		}))
		present[d.ID] = struct{}{}
	}

	for i := range connections {
		c := &connections[i]
		_, srcOK := present[c.SourceDevice]
		_, dstOK := present[c.TargetDevice]
		if !srcOK || !dstOK {
			continue
		}
		g.Edges = append(g.Edges, Edge{
			ID:       "e" + c.ID,
			Source:   c.SourceDevice,
			Target:   c.TargetDevice,
			Label:    string(c.ConnectionType),
			Type:     elementType,
			Animated: true,
			Style:    EdgeStyle{Stroke: ColorStroke},
		})
	}
	return g
}

func newNode(d *device.Device, pos Position) Node {
	status, background := StatusOffline, ColorOffline
	if d.IsOnline {
		status, background = StatusOnline, ColorOnline
	}
	return Node{
		ID:   d.ID,
		Type: elementType,
		Data: NodeData{
			Label: NodeLabel{Hostname: d.Hostname, Status: status},
			Device: DeviceRef{
				ID:         d.ID,
				Hostname:   d.Hostname,
				IPAddress:  d.IPAddress,
				DeviceType: d.DeviceType,
				IsOnline:   d.IsOnline,
			},
		},
		Position: pos,
		Style: NodeStyle{
			Background:   background,
			Border:       nodeBorder,
			BorderRadius: nodeBorderRadius,
			Padding:      nodePadding,
			Width:        nodeWidth,
		},
	}
}

// OnNodeSelect returns the device behind nodeID, used to seed the source
// of a new connection.
func OnNodeSelect(g Graph, nodeID string) (DeviceRef, error) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == nodeID {
			return g.Nodes[i].Data.Device, nil
		}
	}
	return DeviceRef{}, ErrNodeNotFound
}
