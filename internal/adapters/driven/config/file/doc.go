// Package file provides the TOML-backed configuration store.
//
// Configuration lives in ~/.fileupload/config.toml unless a different
// directory is given. Sections map to dotted keys:
//
//	[graph]
//	tenant_id = "..."
//
// is read back as "graph.tenant_id".
package file
