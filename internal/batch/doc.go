// Package batch drives classification over a folder tree.
//
// Files are checked against the result cache first and only cache misses
// reach the classifier. Every outcome, including classifier failures, is
// saved. Once the walk ends, normally or by cancellation, results are tagged
// on the remote server with one call per tag.
package batch
