/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 11:20:13 2018 mstenber
 * Last modified: Tue Mar 27 11:44:09 2018 mstenber
 * Edit time:     17 min
 *
 */

package volume

import "github.com/kimho912/file-system/storage"

// blockStore is the volume image: NumBlocks blocks of BlockSize
// bytes, addressed by handle. It is what gets saved and loaded.
type blockStore struct {
	data      []byte
	blockSize int
}

func (self blockStore) Init(geometry Geometry) *blockStore {
	self.blockSize = geometry.BlockSize
	self.data = make([]byte, geometry.CapacityBytes())
	return &self
}

// block returns the storage of block h; the slice aliases the image.
func (self *blockStore) block(h int) []byte {
	return self.data[h*self.blockSize : (h+1)*self.blockSize]
}

// blocks returns the contiguous storage of n blocks starting at h.
func (self *blockStore) blocks(h, n int) []byte {
	return self.data[h*self.blockSize : (h+n)*self.blockSize]
}

func (self *blockStore) zero() {
	storage.Zero(self.data)
}
