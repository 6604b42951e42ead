// Package tree holds the in-memory source aggregate observed by the rest of
// the system during indexing runs.
//
// Status changes made by the pipeline propagate into the tree as whole-value
// writes keyed by item id; readers always receive copies. All access is
// mutex-guarded because pipeline workers run on a pool, not a single-threaded
// event loop.
package tree
