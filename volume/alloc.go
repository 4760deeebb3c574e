/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 12:11:40 2018 mstenber
 * Last modified: Tue Mar 27 13:02:15 2018 mstenber
 * Edit time:     24 min
 *
 */

package volume

import (
	"github.com/kimho912/file-system/mlog"
)

// noHandle marks absent inode or block reference.
const noHandle int32 = -1

// allocateBlock returns the lowest free block of the data pool and
// marks it used.
func (self *Volume) allocateBlock() (int32, error) {
	h := self.blockMap.FirstFree(self.layout.FirstDataBlock, self.layout.NumBlocks)
	if h < 0 {
		return noHandle, ErrNoFreeBlock
	}
	self.blockMap.SetUsed(h)
	return int32(h), nil
}

func (self *Volume) freeBlock(h int32) {
	self.blockMap.SetFree(int(h))
}

// allocateInode returns the lowest free inode and marks it used.
func (self *Volume) allocateInode() (int32, error) {
	i := self.inodeMap.FirstFree(0, self.inodeMap.Len())
	if i < 0 {
		return noHandle, ErrNoFreeInode
	}
	self.inodeMap.SetUsed(i)
	return int32(i), nil
}

func (self *Volume) freeInode(i int32) {
	self.inodeMap.SetFree(int(i))
}

func (self *Volume) freeBlockCount() int {
	return self.blockMap.CountFree(self.layout.FirstDataBlock, self.layout.NumBlocks)
}

// reclaim marks tombstoned inode's content as overwritten; it no
// longer owns any block.
func (self *Volume) reclaim(i int32) {
	ino := &self.inodes[i]
	if ino.InUse || ino.Reclaimed {
		return
	}
	mlog.Printf2("volume/alloc", "reclaim inode %d", i)
	ino.Reclaimed = true
	for _, h := range ino.Blocks {
		if self.owners[h] == i {
			self.owners[h] = noHandle
		}
	}
}

// claim transfers directory entry d, inode i and blocks to a new
// file. Tombstones that held any of them become unrecoverable.
func (self *Volume) claim(d int, i int32, blocks []int32) {
	if old := self.entries[d].Inode; old != noHandle && old != i {
		self.reclaim(old)
	}
	self.reclaim(i)
	for k := range self.entries {
		e := &self.entries[k]
		if !e.InUse && e.Inode == i {
			e.Inode = noHandle
		}
	}
	for _, h := range blocks {
		if o := self.owners[h]; o != noHandle && o != i {
			self.reclaim(o)
		}
		self.owners[h] = i
	}
}

// rebuildOwners derives block ownership from the inode table.
func (self *Volume) rebuildOwners() {
	for k := range self.owners {
		self.owners[k] = noHandle
	}
	// Live inodes first; they win over tombstones on conflict
	for pass := 0; pass < 2; pass++ {
		for k := range self.inodes {
			ino := &self.inodes[k]
			if ino.InUse != (pass == 0) || ino.Reclaimed {
				continue
			}
			for _, h := range ino.Blocks {
				if self.owners[h] == noHandle {
					self.owners[h] = int32(k)
				}
			}
		}
	}
}
