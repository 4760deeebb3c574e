/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:02:11 2018 mstenber
 * Last modified: Tue Mar 27 09:40:27 2018 mstenber
 * Edit time:     21 min
 *
 */

package volume

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Operations return *Error; errors.Cause(err) yields one
// of these.
var (
	ErrNotOpen              = errors.New("volume is not open")
	ErrFileNotFound         = errors.New("file not found")
	ErrFileTooLarge         = errors.New("file is too large")
	ErrInsufficientSpace    = errors.New("not enough free space")
	ErrNoFreeDirectoryEntry = errors.New("no free directory entry")
	ErrNoFreeInode          = errors.New("no free inode")
	ErrNoFreeBlock          = errors.New("no free block")
	ErrInvalidRange         = errors.New("invalid range")
	ErrInvalidAttributeOp   = errors.New("invalid attribute operation")
	ErrReadOnlyViolation    = errors.New("file is read-only")
	ErrDataReclaimed        = errors.New("deleted data has been reclaimed")
	ErrIOError              = errors.New("I/O error")
	ErrNoFilesFound         = errors.New("no files found")
	ErrNameTooLong          = errors.New("file name is too long")
	ErrInvalidName          = errors.New("invalid file name")
	ErrInvalidGeometry      = errors.New("invalid geometry")
)

// Error records failed operation, the file it concerned, and the
// underlying host error (if any).
type Error struct {
	Op   string
	Name string
	Kind error
	Err  error
}

func (self *Error) Error() string {
	s := self.Op
	if self.Name != "" {
		s = fmt.Sprintf("%s %s", s, self.Name)
	}
	s = fmt.Sprintf("%s: %v", s, self.Kind)
	if self.Err != nil {
		s = fmt.Sprintf("%s: %v", s, self.Err)
	}
	return s
}

// Cause makes errors.Cause return the kind.
func (self *Error) Cause() error {
	return self.Kind
}

func (self *Error) Unwrap() error {
	return self.Kind
}

func newError(op, name string, kind error) error {
	return &Error{Op: op, Name: name, Kind: kind}
}

func wrapError(op, name string, kind, err error) error {
	return &Error{Op: op, Name: name, Kind: kind, Err: err}
}
