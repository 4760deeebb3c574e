/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Mon Mar 26 13:20:44 2018 mstenber
 * Edit time:     41 min
 *
 */

// storage package defines where volume images live between
// sessions. The volume itself is always fully in memory; a Backend
// only ever loads or saves the whole image at once.
package storage

import (
	"github.com/kimho912/file-system/codec"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Init/Load when the storage does
	// not exist (and Create was not requested).
	ErrNotFound = errors.New("image not found")

	// ErrImageSize is returned by Load when stored image is not
	// exactly the requested size.
	ErrImageSize = errors.New("image size mismatch")

	// ErrGeometryMismatch is returned by Load when the stored
	// image was saved with different block size or block count.
	ErrGeometryMismatch = errors.New("image geometry mismatch")

	// ErrCodecUnsupported is returned by Init of backends that
	// store raw bytes only.
	ErrCodecUnsupported = errors.New("backend does not support codecs")
)

type BackendConfiguration struct {
	// Path of the image (file, database file or directory,
	// depending on backend).
	Path string

	// BlockSize is the size of the blocks image consists of.
	BlockSize int

	// Codec to apply to stored blocks, if any. Only block-granular
	// backends support this.
	Codec codec.Codec

	// Create permits Init to create storage that does not exist
	// yet.
	Create bool
}

// Backend is the shadow behind the throne; it actually handles the
// host-side representation of a volume image.
type Backend interface {
	// Init prepares the backend for use.
	Init(config BackendConfiguration) error

	// Close releases any host resources.
	Close() error

	// Load fills image with the stored image. The whole of image
	// is overwritten.
	Load(image []byte) error

	// Save replaces the stored image with image.
	Save(image []byte) error
}

// Geometry is stored alongside the blocks by block-granular backends.
type Geometry struct {
	BlockSize int `codec:"bs"`
	NumBlocks int `codec:"nb"`
}

// Check returns ErrGeometryMismatch if the stored geometry does not
// describe image of given size.
func (self Geometry) Check(blockSize, imageSize int) error {
	if self.BlockSize != blockSize || self.BlockSize*self.NumBlocks != imageSize {
		return errors.Wrapf(ErrGeometryMismatch, "stored %d x %d, wanted %d bytes of %d byte blocks",
			self.NumBlocks, self.BlockSize, imageSize, blockSize)
	}
	return nil
}
