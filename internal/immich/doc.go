// Package immich is a small client for the parts of the Immich HTTP API that
// palette needs: tag lookup and assignment, tag-filtered asset search, asset
// deletion, trash emptying and duplicate group listing.
//
// Response shapes differ across server releases, so list endpoints are decoded
// through an ordered set of shape parsers rather than a single struct. Calls
// are never retried; transport failures and non-2xx responses surface as
// services.ErrUnreachable.
package immich
