// Package results persists classification outcomes in a local SQLite cache
// keyed by content hash and current path.
//
// CheckIfProcessed decides whether a file needs classifying: an unchanged file
// at a known path is a cache hit, a changed file is not, and known content at a
// new path is treated as a move and rewrites the cached record instead of
// forcing reclassification. CheckQuick skips hashing and trusts the path.
//
// The store assumes a single writer. Open takes an exclusive lock file next to
// the database and fails with ErrLocked when another process holds it.
package results
