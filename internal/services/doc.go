// Package services implements the local file pipeline: turning a plaintext
// file into a tagged artifact and back, one file or a whole tree at a time.
//
// Key Types
//
//   - type FileService: encrypt/decrypt single files and directories
//   - type Outcome: what one successful operation produced
//   - type BatchReport: every success and failure of a directory run
//
// Work is sequential; the keeper serializes its own writers.
package services
