/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:41:02 2018 mstenber
 * Last modified: Tue Mar 27 11:18:54 2018 mstenber
 * Edit time:     52 min
 *
 */

package volume

import (
	"math"

	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
)

// NameLength is the maximum length of file name in bytes.
const NameLength = 64

// On-image record sizes.
//
// Directory entry: name (NUL padded), in_use, 3 bytes padding,
// inode handle (int32 LE, -1 = none).
//
// Inode: size (uint32 LE), in_use, attributes, flags, 1 byte
// padding, then BlocksPerFile block handles (int32 LE, -1 terminated).
const (
	directoryEntrySize = NameLength + 8
	inodeHeaderSize    = 8
	handleSize         = 4
)

// Geometry describes the size of a volume.
type Geometry struct {
	BlockSize     int
	NumBlocks     int
	NumFiles      int
	BlocksPerFile int
}

// DefaultGeometry gives 64MB volume of 1KB blocks, with up to 256
// files of up to 1MB each.
var DefaultGeometry = Geometry{BlockSize: 1024, NumBlocks: 65536, NumFiles: 256, BlocksPerFile: 1024}

func (self Geometry) MaxFileSize() int64 {
	return int64(self.BlocksPerFile) * int64(self.BlockSize)
}

func (self Geometry) CapacityBytes() int64 {
	return int64(self.NumBlocks) * int64(self.BlockSize)
}

func (self Geometry) inodeSize() int {
	return inodeHeaderSize + handleSize*self.BlocksPerFile
}

func (self Geometry) Validate() error {
	if self.BlockSize <= 0 || self.NumBlocks <= 0 || self.NumFiles <= 0 || self.BlocksPerFile <= 0 {
		return errors.Wrapf(ErrInvalidGeometry, "%+v", self)
	}
	if int64(self.NumBlocks) > math.MaxInt32 || int64(self.NumFiles) > math.MaxInt32 {
		return errors.Wrapf(ErrInvalidGeometry, "%+v does not fit 32-bit handles", self)
	}
	if self.MaxFileSize() > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidGeometry, "%+v: maximum file size does not fit 32 bits", self)
	}
	if self.Layout().FirstDataBlock >= self.NumBlocks {
		return errors.Wrapf(ErrInvalidGeometry, "%+v leaves no data blocks", self)
	}
	return nil
}

// Layout is the placement of the metadata tables within the reserved
// region at the start of the volume. Every table starts at block
// boundary.
type Layout struct {
	Geometry
	DirectoryStart, DirectoryBlocks   int
	InodeMapStart, InodeMapBlocks     int
	BlockMapStart, BlockMapBlocks     int
	InodeTableStart, InodeTableBlocks int

	// FirstDataBlock is the first block of the data pool; the pool
	// extends to the end of the volume.
	FirstDataBlock int
}

func (self Geometry) blocksFor(bytes int64) int {
	return int(util.CeilDiv(bytes, int64(self.BlockSize)))
}

func (self Geometry) Layout() Layout {
	l := Layout{Geometry: self}
	l.DirectoryStart = 0
	l.DirectoryBlocks = self.blocksFor(int64(self.NumFiles) * directoryEntrySize)
	l.InodeMapStart = l.DirectoryStart + l.DirectoryBlocks
	l.InodeMapBlocks = self.blocksFor(util.CeilDiv(int64(self.NumFiles), 8))
	l.BlockMapStart = l.InodeMapStart + l.InodeMapBlocks
	l.BlockMapBlocks = self.blocksFor(util.CeilDiv(int64(self.NumBlocks), 8))
	l.InodeTableStart = l.BlockMapStart + l.BlockMapBlocks
	l.InodeTableBlocks = self.blocksFor(int64(self.NumFiles) * int64(self.inodeSize()))
	l.FirstDataBlock = l.InodeTableStart + l.InodeTableBlocks
	return l
}

// DataBlocks is the size of the data pool in blocks.
func (self Layout) DataBlocks() int {
	return self.NumBlocks - self.FirstDataBlock
}

func (self Layout) isDataBlock(h int32) bool {
	return h >= int32(self.FirstDataBlock) && int64(h) < int64(self.NumBlocks)
}
