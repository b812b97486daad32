// Package syncer mirrors a local tree of artifacts to remote storage and
// back.
//
// An upload run resolves the remote root, mirrors local folders one depth
// level at a time, uploads files into their resolved folders and finally
// writes the remote ids it learned back into the keeper in one batch. The
// folder id map lives for one run only.
package syncer
