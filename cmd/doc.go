// Package cmd provides the command-line interface for edge.
//
// The commands are built with Cobra and read their configuration through
// Viper from .edge.yml, EDGE_ environment variables and flags.
//
// # Available Commands
//
//   - render: Render a template to stdout or a file
//   - check: Compile every template and report errors
//   - dump: Print the compiled instructions or tokens of a template
//   - list: List the templates on the configured disks
//   - serve: Start the preview server with live reload
//   - init: Write a starter .edge.yml and views directory
//   - config: Show or validate the effective configuration
//   - version: Show build information
//
// # Command Examples
//
//	// Render with data from a YAML file
//	edge render emails/welcome --data user.yml
//
//	// Render template source directly
//	edge render --string 'Hello {{ name }}' --data '{"name":"virk"}'
//
//	// Fail CI on template errors
//	edge check
//
//	// Preview templates in the browser
//	edge serve --port 3000
package cmd
