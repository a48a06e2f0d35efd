// Package logging builds the slog loggers used across palette.
//
// Console output puts the run, stage, component and asset ahead of the
// message so a batch run reads top to bottom; JSON output keeps them as
// plain keys. Both go to stderr and, when configured, to palette.log.
package logging
