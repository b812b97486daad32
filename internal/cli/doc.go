// Package cli implements the cryptkeeper command tree.
//
// Commands:
//
//	encrypt <path>                  encrypt a file or every file under a directory
//	decrypt <path> [-o output]      restore artifacts
//	keeper list|import|export|purge inspect and maintain the keeper
//	config show|set                 view or change persistent settings
//	cloud upload|download|view      synchronize with remote storage
//	version                         print build information
//
// Settings are layered: built-in defaults, then the JSON config file, then
// command-line flags.
package cli
