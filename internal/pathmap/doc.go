// Package pathmap translates file paths between the local filesystem and the
// path strings the remote asset server reports.
//
// A Translator holds an ordered table of local/remote prefix pairs. Lookups
// walk the table in configured order and the first entry whose prefix matches
// on a separator boundary wins, so overlapping prefixes must be avoided in
// configuration. Local matching follows the case convention of the local
// filesystem; remote matching is always case-sensitive.
package pathmap
