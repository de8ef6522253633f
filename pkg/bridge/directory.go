// Copyright 2025-2026 Aiku AI

package bridge

// NodeDirectory is an in-memory table mapping mesh node ids to the short
// display names they advertise. It only grows during a run, bounded by
// the number of distinct nodes observed.
//
// The directory is owned exclusively by the Router and is mutated from
// its event loop only, so it carries no lock of its own. Tests construct
// isolated instances.
type NodeDirectory struct {
	names map[NodeID]string
}

// NewNodeDirectory returns an empty directory.
func NewNodeDirectory() *NodeDirectory {
	return &NodeDirectory{names: make(map[NodeID]string)}
}

// Resolve returns the short name advertised by id, or the 8-hex-digit
// rendering of the id when no name has been observed. It never fails;
// absence is handled by the fallback.
func (d *NodeDirectory) Resolve(id NodeID) string {
	if name, ok := d.names[id]; ok && name != "" {
		return name
	}
	return id.String()
}

// ObserveName records the short name advertised by id, overwriting any
// earlier observation. Last write wins.
func (d *NodeDirectory) ObserveName(id NodeID, name string) {
	d.names[id] = name
}

// Len returns the number of distinct nodes observed.
func (d *NodeDirectory) Len() int {
	return len(d.names)
}
