// Package utils provides shared utility functions for the Backpack application.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # Filesystem Utilities
//
//   - PermissionsTooOpen: reports group/other access on the container file
//   - FileExists: checks for a regular file
//
// # String Utilities
//
//   - SplitList: parses comma-separated flag values such as --credentials
//   - FormatPaths, FormatNames: bulleted output for paths and secret names
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input (key add --value -)
//   - TrimNewline: strips the line ending left by echo
//
// # Terminal Utilities
//
//   - ReadPassphrase: reads a secret value without echo
//   - Confirm: asks a yes/no consent question on the controlling terminal
//   - IsTerminal: checks if stdin is a terminal
package utils
