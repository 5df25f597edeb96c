// Package connection manages directed, typed links between devices.
//
// A connection A→B forbids a later B→A of any type. Further A→B edges,
// of the same or another type, are allowed. The rule is checked and the
// row inserted inside one SQLite transaction, so two writers creating
// mutually reverse connections cannot both succeed.
//
// A connection never outlives its endpoints: the foreign keys cascade
// when a device is deleted.
package connection
