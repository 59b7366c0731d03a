// Package logging sets up structured JSON logging for searchbridge.
//
// Logs go to a size-rotated file under ~/.searchbridge/logs/ and, outside
// of server mode, to stderr as well. The serve command logs to the file only
// because stdout and stderr belong to the MCP transport.
//
// The Viewer reads those files back for the logs command.
package logging
