package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrIsFolder is returned when file content is requested for a folder.
	ErrIsFolder = errors.New("item is a folder")
)
