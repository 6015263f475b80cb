// Package storage defines the folder abstraction documents are read from
// and written to.
package storage

import "time"

// FileMeta describes one file found in a folder listing.
type FileMeta struct {
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for file operations inside one project folder.
// Paths are relative to the folder root.
type Provider interface {
	// Root returns the absolute folder path.
	Root() string
	// List returns metadata for the files directly in the folder whose
	// name ends with ext, sorted by name.
	List(ext string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at name.
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name.
	Write(name string, content []byte) error
	// Exists reports whether name is a regular file.
	Exists(name string) bool
	// Delete removes the file at name.
	Delete(name string) error
}
