// Package registry provides the in-memory service directory at the core of
// the mesh: service name to live instances. It is a single-process store by
// design; multiple gateway replicas hold independent views.
//
// The registry guards two indices (id to record, name to ids) with one lock
// so no caller can observe an id present in one index but not the other.
// All read operations return snapshots, never live references.
package registry
