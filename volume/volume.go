/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 13:52:10 2018 mstenber
 * Last modified: Tue Mar 27 14:40:51 2018 mstenber
 * Edit time:     38 min
 *
 */

// Package volume implements flat, inode based block storage volume
// that lives entirely in memory.
//
// The volume image consists of NumBlocks blocks. The first blocks
// hold the directory table, the inode and block bitmaps and the inode
// table; the rest is the data pool for file content. The tables are
// kept decoded in memory, and encoded into the image only when it is
// saved.
//
// Deleted files are tombstones: their slots and blocks are free for
// reuse, but the content stays until some later insert claims any of
// it. Until then Undelete can restore them.
package volume

import (
	"github.com/kimho912/file-system/mlog"
)

type Volume struct {
	layout Layout
	store  *blockStore

	entries  []Entry
	inodes   []Inode
	inodeMap *Bitmap
	blockMap *Bitmap

	// owners maps data block handle to the inode (live or
	// tombstone) whose content it holds, or noHandle.
	owners []int32
}

// New creates initialized, empty volume.
func New(geometry Geometry) (*Volume, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	self := newVolume(geometry)
	self.Initialize()
	return self, nil
}

func newVolume(geometry Geometry) *Volume {
	return &Volume{
		layout:   geometry.Layout(),
		store:    blockStore{}.Init(geometry),
		entries:  make([]Entry, geometry.NumFiles),
		inodes:   make([]Inode, geometry.NumFiles),
		inodeMap: NewBitmap(geometry.NumFiles),
		blockMap: NewBitmap(geometry.NumBlocks),
		owners:   make([]int32, geometry.NumBlocks),
	}
}

// Initialize zeroes the volume, leaving every inode and data block
// free and the directory empty.
func (self *Volume) Initialize() {
	mlog.Printf2("volume/volume", "v.Initialize %+v", self.layout.Geometry)
	self.store.zero()
	for k := range self.entries {
		self.entries[k] = emptyEntry()
	}
	for k := range self.inodes {
		self.inodes[k] = Inode{}
		self.inodeMap.SetFree(k)
	}
	for k := 0; k < self.layout.NumBlocks; k++ {
		if k < self.layout.FirstDataBlock {
			self.blockMap.SetUsed(k)
		} else {
			self.blockMap.SetFree(k)
		}
		self.owners[k] = noHandle
	}
}

func (self *Volume) Geometry() Geometry {
	return self.layout.Geometry
}

func (self *Volume) Layout() Layout {
	return self.layout
}

func (self *Volume) CapacityBytes() int64 {
	return self.layout.CapacityBytes()
}

// FreeBytes is the size of the free part of the data pool.
func (self *Volume) FreeBytes() int64 {
	return int64(self.freeBlockCount()) * int64(self.layout.BlockSize)
}
