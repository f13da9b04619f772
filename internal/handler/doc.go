// Package handler maps object types to the strategies that know how to
// identify, fetch, match, overwrite, save and retire them.
//
// The Registry is built once at startup from a fixed list of Registrations and
// is read-only afterwards. Resolution failures are configuration defects and
// surface as *NoHandlerError.
package handler
