// Package cli parses command-line arguments into an app.Config. It owns the
// usage text and the ExitError type the entrypoint maps to process exit
// codes.
package cli
