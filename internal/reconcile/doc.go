// Package reconcile installs, updates and retires individual objects through
// the handler registry.
//
// Reconciliation of one incoming object:
//
//	identifier := handler.Identifier(incoming)
//	existing   := handler.Fetch(identifier)
//	if existing == nil { existing = handler.FindAlternateMatch(incoming) }
//	if existing != nil { handler.Overwrite(incoming, existing); return handler.Save(existing) }
//	return handler.Save(incoming)
//
// When an existing object is updated its identity is kept; the caller must use
// the returned object rather than the one it passed in.
package reconcile
