// Package distro loads declarative distributions written in CUE.
//
// A distribution is a directory of .cue files declaring bundles:
//
//	bundle: "core-roles": {
//		requires: ["core-privileges"]
//		packages: [{file: "packages/core-3.zip", group: "core"}]
//		objects: [{type: "role", name: "Clerk", privileges: ["View Forms"]}]
//		sources: [{file: "locations.csv", type: "location"}]
//		uninstall: [{type: "location", id: "...", reason: "merged"}]
//	}
//
// Each bundle installs, in order, its packages, its inline objects, its
// source files and then its uninstalls. Files are resolved against the
// distribution directory.
package distro
