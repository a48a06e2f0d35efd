// Package preflight provides readiness checks for the filesystem paths and
// external services palette depends on.
//
// Commands call RunAll before entering a batch loop. A failed check is a
// configuration-level failure: the loop never starts, so no asset is moved
// or deleted on a setup that cannot finish. The CLI "check" command prints
// the same results as a table.
package preflight
