// Package internal contains the implementation packages of the edge template
// engine and its CLI.
//
// These packages follow Go's internal package convention; the public API is
// pkg/edge.
//
// # Package Organization
//
// The compile pipeline, in order:
//
//   - lexer: Splits template source into raw text, mustache, comment and tag tokens
//   - statement: Scans balanced tag arguments across lines
//   - whitespace: Trims and collapses raw text around tags
//   - expr: Parses the JavaScript-like expressions inside tags and mustaches
//   - tags: Tag registry and the if, each, include, component, slot and set tags
//   - buffer: Collects instructions while a template is parsed
//   - vm: The instruction program and the machine that renders it
//   - compiler: Ties the stages together and caches compiled programs
//
// Runtime and support:
//
//   - scope: Render context with isolated component scopes and helpers
//   - loader: Resolves "disk::name" template names on mounted directories
//   - errors: Error taxonomy, collection and HTML overlay generation
//   - logging: Structured logging on log/slog
//   - config: Configuration with viper and validation
//   - watcher: File system monitoring with debouncing and cache invalidation
//   - server: Preview server with live reload over WebSocket
//   - version: Build information
//   - testutils: Fixtures shared by tests
//
// # Data Flow
//
// A template name is resolved by the loader, tokenized by the lexer and
// parsed by the tags parser into a buffer, which is flushed into a
// vm.Program. The compiler caches programs by normalized name. Rendering
// runs the program against a scope.Context built from globals and the
// caller's data.
//
// In development the watcher invalidates cached programs when files change
// and the server tells open preview pages to reload.
package internal
