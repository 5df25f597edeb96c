package topology

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
)

func devices(ids ...string) []device.Device {
	out := make([]device.Device, len(ids))
	for i, id := range ids {
		out[i] = device.Device{ID: id, Hostname: "host-" + id, DeviceType: device.DeviceTypeOther}
	}
	return out
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLayout_CirclePositions(t *testing.T) {
	devs := devices("a", "b", "c", "d")
	g := Layout(devs, nil, DefaultOptions())

	want := []Position{
		{650, 300},
		{400, 550},
		{150, 300},
		{400, 50},
	}
	if len(g.Nodes) != len(want) {
		t.Fatalf("nodes = %d, want %d", len(g.Nodes), len(want))
	}
	for i, n := range g.Nodes {
		if !near(n.Position.X, want[i].X) || !near(n.Position.Y, want[i].Y) {
			t.Errorf("node %s at %+v, want %+v", n.ID, n.Position, want[i])
		}
		if n.ID != devs[i].ID {
			t.Errorf("node %d id = %q, want %q", i, n.ID, devs[i].ID)
		}
	}
}

func TestLayout_Styles(t *testing.T) {
	devs := devices("on", "off")
	devs[0].IsOnline = true

	g := Layout(devs, nil, DefaultOptions())
	on, off := g.Nodes[0], g.Nodes[1]

	if on.Style.Background != ColorOnline || on.Data.Label.Status != StatusOnline {
		t.Errorf("online node = %+v", on)
	}
	if off.Style.Background != ColorOffline || off.Data.Label.Status != StatusOffline {
		t.Errorf("offline node = %+v", off)
	}
	if on.Style.Border != "1px solid #555" || on.Style.Width != 150 || on.Style.BorderRadius != "5px" || on.Style.Padding != "10px" {
		t.Errorf("node style = %+v", on.Style)
	}
	if on.Data.Label.Hostname != "host-on" || on.Data.Device.ID != "on" {
		t.Errorf("node data = %+v", on.Data)
	}
}

func TestLayout_Edges(t *testing.T) {
	devs := devices("1", "2", "3")
	conns := []connection.Connection{
		{ID: "10", SourceDevice: "1", TargetDevice: "2", ConnectionType: connection.TypeLAN},
		{ID: "11", SourceDevice: "2", TargetDevice: "3", ConnectionType: connection.TypeWiFi},
		{ID: "12", SourceDevice: "3", TargetDevice: "gone", ConnectionType: connection.TypeLAN},
	}

	g := Layout(devs, conns, DefaultOptions())
	if len(g.Edges) != 2 {
		t.Fatalf("edges = %+v, want 2 (dangling edge dropped)", g.Edges)
	}
	e := g.Edges[1]
	want := Edge{
		ID:       "e11",
		Source:   "2",
		Target:   "3",
		Label:    "WIFI",
		Type:     "default",
		Animated: true,
		Style:    EdgeStyle{Stroke: "#555"},
	}
	if e != want {
		t.Errorf("edge = %+v, want %+v", e, want)
	}
}

func TestLayout_Deterministic(t *testing.T) {
	devs := devices("x", "y", "z")
	conns := []connection.Connection{{ID: "1", SourceDevice: "x", TargetDevice: "z", ConnectionType: connection.TypeLAN}}

	first := Layout(devs, conns, DefaultOptions())
	second := Layout(devs, conns, DefaultOptions())
	if !reflect.DeepEqual(first, second) {
		t.Error("Layout is not deterministic for identical input")
	}

	reordered := Layout(devices("z", "y", "x"), conns, DefaultOptions())
	if reflect.DeepEqual(first.Nodes[0].Position, reordered.Nodes[2].Position) {
		t.Error("Layout should place by list index, not identity")
	}
}

func TestLayout_Empty(t *testing.T) {
	g := Layout(nil, nil, DefaultOptions())
	if g.Nodes == nil || g.Edges == nil || len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("empty layout = %+v, want empty non-nil slices", g)
	}
}

func TestOnNodeSelect(t *testing.T) {
	g := Layout(devices("a", "b"), nil, DefaultOptions())

	ref, err := OnNodeSelect(g, "b")
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID != "b" || ref.Hostname != "host-b" {
		t.Errorf("OnNodeSelect() = %+v", ref)
	}
	if _, err := OnNodeSelect(g, "nope"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("OnNodeSelect(unknown) error = %v", err)
	}
}

func TestEngine_PinsSurviveReordering(t *testing.T) {
	e := NewEngine(Options{})
	if err := e.Pin("b", Position{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}

	for _, order := range [][]string{{"a", "b", "c"}, {"c", "a", "b"}, {"b"}} {
		g := e.Project(devices(order...), nil)
		for _, n := range g.Nodes {
			if n.ID != "b" {
				if n.Pinned {
					t.Errorf("node %s should not be pinned", n.ID)
				}
				continue
			}
			if n.Position != (Position{X: 10, Y: 20}) || !n.Pinned {
				t.Errorf("order %v: pinned node at %+v", order, n.Position)
			}
		}
	}

	if !e.Unpin("b") || e.Unpin("b") {
		t.Error("Unpin should report the pin once")
	}
	g := e.Project(devices("b"), nil)
	if g.Nodes[0].Pinned || !near(g.Nodes[0].Position.X, 650) {
		t.Errorf("unpinned node = %+v", g.Nodes[0])
	}
}

func TestEngine_PinValidationAndPrune(t *testing.T) {
	e := NewEngine(DefaultOptions())

	if err := e.Pin("a", Position{X: math.NaN()}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Pin(NaN) error = %v", err)
	}
	if err := e.Pin("a", Position{X: math.Inf(1)}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Pin(Inf) error = %v", err)
	}

	for _, id := range []string{"a", "b", "gone"} {
		if err := e.Pin(id, Position{X: 1, Y: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if n := e.Prune(devices("a", "b")); n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}
	if _, ok := e.Pinned()["gone"]; ok {
		t.Error("pin for deleted device survived Prune")
	}
	if len(e.Pinned()) != 2 {
		t.Errorf("Pinned() = %v", e.Pinned())
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	if got := NewEngine(Options{}).Options(); got != DefaultOptions() {
		t.Errorf("Options() = %+v, want defaults", got)
	}
	custom := Options{Radius: 100, CenterX: 0, CenterY: 50}
	if got := NewEngine(custom).Options(); got != custom {
		t.Errorf("Options() = %+v, want %+v", got, custom)
	}
}
