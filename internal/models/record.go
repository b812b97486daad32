// Package models defines the keeper record and the transient shapes built
// while walking local and remote trees.
package models

// Record is one keeper row: everything needed to turn an artifact back into
// its plaintext. Key and Nonce never leave the keeper.
type Record struct {
	ID        string
	Key       []byte
	Nonce     []byte
	FileName  string
	Extension string
	FullPath  string
	RemoteID  string
}

// OriginalName is the plaintext file name including its extension.
func (r *Record) OriginalName() string {
	return r.FileName + r.Extension
}

// Clone returns a deep copy so callers can mutate it without touching
// a shared instance.
func (r *Record) Clone() *Record {
	c := *r
	c.Key = append([]byte(nil), r.Key...)
	c.Nonce = append([]byte(nil), r.Nonce...)
	return &c
}
