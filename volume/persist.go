/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 11:30:05 2018 mstenber
 * Last modified: Wed Mar 28 12:14:40 2018 mstenber
 * Edit time:     27 min
 *
 */

package volume

import (
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/pkg/errors"
)

// Image encodes the tables and returns the whole volume image. The
// result aliases the volume and is valid until the next change.
func (self *Volume) Image() []byte {
	self.encodeTables()
	return self.store.data
}

// Save writes the volume image to the backend.
func (self *Volume) Save(be storage.Backend) error {
	mlog.Printf2("volume/persist", "v.Save")
	if err := be.Save(self.Image()); err != nil {
		return wrapError("save", "", ErrIOError, err)
	}
	return nil
}

// Load reads volume with the given geometry from the backend.
func Load(geometry Geometry, be storage.Backend) (*Volume, error) {
	const op = "open"
	mlog.Printf2("volume/persist", "volume.Load %+v", geometry)
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	self := newVolume(geometry)
	if err := be.Load(self.store.data); err != nil {
		if errors.Cause(err) == storage.ErrNotFound {
			return nil, wrapError(op, "", ErrFileNotFound, err)
		}
		return nil, wrapError(op, "", ErrIOError, err)
	}
	if err := self.decodeTables(); err != nil {
		return nil, wrapError(op, "", ErrIOError, err)
	}
	mlog.Printf2("volume/persist", " loaded, %d bytes free", self.FreeBytes())
	return self, nil
}
