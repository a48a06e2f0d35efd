// Package config loads, normalizes, and validates palette configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// IMMICH_URL, IMMICH_API_KEY, and IMMICH_PATH_MAPPING, which may also come from
// a .env file. The Config type centralizes the cache location, remote server
// credentials, path mappings, and move/dedup settings in one pass.
//
// Command-specific requirements are checked by ValidateRemote and ValidateMove
// so that cache-only commands run without server credentials.
package config
