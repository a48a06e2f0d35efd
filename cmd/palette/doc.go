// Package main hosts the palette CLI entrypoint and command graph.
//
// Each command resolves configuration lazily through the shared command
// context, runs the preflight checks relevant to it, and then hands off to the
// internal packages: batch for classification and tag sync, mover for
// relocating tagged assets, dedup for duplicate cleanup, and results for cache
// maintenance. Keep the heavy lifting in those packages; commands here only
// wire collaborators together and render outcomes.
package main
