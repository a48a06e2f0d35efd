// Package mover relocates tagged assets out of the remote library.
//
// For each asset carrying the move tag, the server-reported path is mapped
// back to a local file, a destination under the archive root is derived from
// the same mapping, the file is moved with content verification, and only
// then is the asset deleted from the server. Every asset produces exactly one
// Transaction, whatever the outcome, and the run can be exported as a JSON
// transaction log and a CSV report.
package mover
