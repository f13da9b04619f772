// Package ir provides the shared object model for metadeploy.
//
// Every other internal package imports ir; ir imports nothing internal. It
// defines what a deployable object is (a type tag plus whatever fields the
// concrete type carries), the identifier rules, deterministic serialization
// used for change detection, and the small record types the store persists on
// behalf of the engine.
//
// Key constraints:
//   - An object's identifier is stable and never rewritten by reconciliation
//   - Fingerprints are computed from canonical JSON, never from json.Marshal
//   - All JSON tags use snake_case
package ir
