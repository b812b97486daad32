// Package artifact implements the on-disk layout of an encrypted file:
//
//	[record id][!!!][ciphertext + tag]
//
// The id is UUID text, so it never contains the delimiter and the first
// occurrence of "!!!" always ends it. Key and nonce are never written here.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
)

// Extension marks encrypted files.
const Extension = ".crypt"

// MaxIDLen bounds the header search so plain files are rejected without
// scanning them whole.
const MaxIDLen = 64

// Delimiter separates the record id from the ciphertext (bytes 33,33,33).
var Delimiter = []byte("!!!")

// Tag prepends the record id and the delimiter to ciphertext.
func Tag(id string, ciphertext []byte) []byte {
	out := make([]byte, 0, len(id)+len(Delimiter)+len(ciphertext))
	out = append(out, id...)
	out = append(out, Delimiter...)
	return append(out, ciphertext...)
}

// Parse splits an artifact into record id and ciphertext. The returned
// ciphertext aliases data.
func Parse(data []byte) (string, []byte, error) {
	id, err := parseHeader(data)
	if err != nil {
		return "", nil, err
	}
	return id, data[len(id)+len(Delimiter):], nil
}

// ReadID reads only the header of the artifact at path.
func ReadID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrIO, err)
	}
	defer f.Close()

	head := make([]byte, MaxIDLen+len(Delimiter))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	return parseHeader(head[:n])
}

func parseHeader(data []byte) (string, error) {
	window := data
	if len(window) > MaxIDLen+len(Delimiter) {
		window = window[:MaxIDLen+len(Delimiter)]
	}

	i := bytes.Index(window, Delimiter)
	switch {
	case i < 0:
		return "", fmt.Errorf("%w: missing artifact delimiter", common.ErrFormat)
	case i == 0:
		return "", fmt.Errorf("%w: empty record id", common.ErrFormat)
	}

	id := string(window[:i])
	if !validID(id) {
		return "", fmt.Errorf("%w: invalid record id %q", common.ErrFormat, id)
	}
	return id, nil
}

func validID(id string) bool {
	for _, c := range id {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F', c == '-':
		default:
			return false
		}
	}
	return true
}

// IsArtifact reports whether name carries the artifact extension.
func IsArtifact(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}

// OutputPath is where the artifact for src is written: same directory,
// file stem plus Extension.
func OutputPath(src string) string {
	stem, _ := SplitName(filepath.Base(src))
	return filepath.Join(filepath.Dir(src), stem+Extension)
}

// SplitName splits a base name into stem and extension, the extension
// keeping its leading dot. Dotfiles such as ".bashrc" have no extension.
func SplitName(base string) (string, string) {
	ext := filepath.Ext(base)
	if ext == base {
		return base, ""
	}
	return strings.TrimSuffix(base, ext), ext
}
