package domain

import (
	"path"
	"strings"
)

// MaxUploadBytes is the default upload ceiling (5 MiB).
const MaxUploadBytes = 5 << 20

// Blob is an in-memory file to be stored.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size is the blob length in bytes.
func (b Blob) Size() int64 { return int64(len(b.Data)) }

// Ext returns the extension of Name without the dot, or "".
func (b Blob) Ext() string {
	return strings.TrimPrefix(path.Ext(b.Name), ".")
}

// StoredObject describes an object in storage.
type StoredObject struct {
	Path        string
	ContentType string
	Size        int64
}
