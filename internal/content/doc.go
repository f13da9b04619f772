// Package content refreshes content managers in priority order.
//
// A content manager owns one slice of deployed state (bundles, chores) and
// knows how to bring it up to date. RefreshAll runs every manager once,
// lowest priority first, and flushes and clears the session between managers
// so one manager's working set is not carried into the next.
//
// Only one refresh runs at a time per Refresher. The outcome of a refresh is
// returned as a Result; there is no process-wide "started" flag.
package content
