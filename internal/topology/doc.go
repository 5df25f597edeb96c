// Package topology projects the inventory into a renderable graph.
//
// Layout places the i-th of N devices at angle 2πi/N on a circle and draws
// one edge per connection. It is a pure function of its inputs: the same
// ordered device and connection lists always produce the same graph.
//
// Engine adds position memory on top of Layout. A pinned device keeps its
// position across refreshes regardless of where it falls in the list.
package topology
