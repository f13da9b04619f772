// Package pkgimport gates versioned package imports.
//
// A package file is named "<name>-<version>.zip". For each package group the
// highest imported version is recorded; a file whose version is not newer than
// that record is skipped without being opened. Newer files are handed to a
// PackageImporter configured for mirror mode, in which the package's state
// replaces prior state for every object it defines.
package pkgimport
