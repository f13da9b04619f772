// Package metadata defines the concrete object types a distribution deploys
// and the handlers that persist them.
//
// Privileges and roles are identified by name and are purged on uninstall.
// Every other type is identified by a 36-character uuid and is retired on
// uninstall; installing it again un-retires it.
package metadata
