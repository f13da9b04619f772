// Package bundle installs sets of metadata bundles in dependency order.
//
// A bundle names its prerequisites by ID. InstallBundles walks the input in
// order and installs each bundle after its prerequisites, depth first, at most
// once per run. The walk stops at the first failure; nothing after it runs.
//
// Failure modes:
//   - *UnresolvedDependencyError: a prerequisite is not in the input set
//   - *CyclicDependencyError: a prerequisite is already being installed
//   - *BundleInstallError: Install returned an error or panicked
//
// Validate performs the same checks statically and reports every problem
// instead of stopping at the first one.
package bundle
