// Package services holds the failure taxonomy shared by every component and
// the context keys used to tag log lines with run, stage, and asset identifiers.
//
// Components wrap failures with Wrap and one of the sentinel markers; drivers
// use errors.Is (or Kind for report columns) to classify them. Nothing in the
// per-item path panics or aborts a batch: failures are values.
package services
