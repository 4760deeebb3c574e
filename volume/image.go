/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 09:32:44 2018 mstenber
 * Last modified: Wed Mar 28 11:27:31 2018 mstenber
 * Edit time:     84 min
 *
 */

package volume

import (
	"bytes"
	"encoding/binary"

	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
)

const flagReclaimed = 0x1

var errCorrupt = errors.New("corrupt volume image")

// encodeTables writes the in-memory tables to the reserved region of
// the image.
func (self *Volume) encodeTables() {
	l := self.layout
	s := self.store

	dir := s.blocks(l.DirectoryStart, l.DirectoryBlocks)
	storage.Zero(dir)
	for k, e := range self.entries {
		b := dir[k*directoryEntrySize : (k+1)*directoryEntrySize]
		copy(b[:NameLength], e.Name)
		b[NameLength] = boolByte(e.InUse)
		binary.LittleEndian.PutUint32(b[NameLength+4:], uint32(e.Inode))
	}

	for _, m := range []struct {
		start, count int
		bitmap       *Bitmap
	}{{l.InodeMapStart, l.InodeMapBlocks, self.inodeMap},
		{l.BlockMapStart, l.BlockMapBlocks, self.blockMap}} {
		b := s.blocks(m.start, m.count)
		storage.Zero(b)
		copy(b, m.bitmap.Bytes())
	}

	table := s.blocks(l.InodeTableStart, l.InodeTableBlocks)
	storage.Zero(table)
	isz := l.inodeSize()
	for k := range self.inodes {
		ino := &self.inodes[k]
		b := table[k*isz : (k+1)*isz]
		binary.LittleEndian.PutUint32(b, ino.Size)
		b[4] = boolByte(ino.InUse)
		b[5] = byte(ino.Attributes)
		if ino.Reclaimed {
			b[6] = flagReclaimed
		}
		for j := 0; j < l.BlocksPerFile; j++ {
			h := noHandle
			if j < len(ino.Blocks) {
				h = ino.Blocks[j]
			}
			binary.LittleEndian.PutUint32(b[inodeHeaderSize+j*handleSize:], uint32(h))
		}
	}
}

// decodeTables rebuilds the in-memory tables from the reserved region
// of the image, checking that they are consistent.
func (self *Volume) decodeTables() error {
	l := self.layout
	s := self.store

	self.inodeMap.setBytes(s.blocks(l.InodeMapStart, l.InodeMapBlocks))
	self.blockMap.setBytes(s.blocks(l.BlockMapStart, l.BlockMapBlocks))
	for k := 0; k < l.FirstDataBlock; k++ {
		if self.blockMap.IsFree(k) {
			return errors.Wrapf(errCorrupt, "reserved block %d marked free", k)
		}
	}

	table := s.blocks(l.InodeTableStart, l.InodeTableBlocks)
	isz := l.inodeSize()
	for k := range self.inodes {
		b := table[k*isz : (k+1)*isz]
		ino := Inode{Size: binary.LittleEndian.Uint32(b),
			Attributes: Attribute(b[5])}
		inUse, ok := byteBool(b[4])
		if !ok || b[6]&^flagReclaimed != 0 {
			return errors.Wrapf(errCorrupt, "inode %d header %x", k, b[:inodeHeaderSize])
		}
		ino.InUse = inUse
		ino.Reclaimed = b[6]&flagReclaimed != 0
		ended := false
		for j := 0; j < l.BlocksPerFile; j++ {
			h := int32(binary.LittleEndian.Uint32(b[inodeHeaderSize+j*handleSize:]))
			switch {
			case h == noHandle:
				ended = true
			case ended || !l.isDataBlock(h):
				return errors.Wrapf(errCorrupt, "inode %d block #%d is %d", k, j, h)
			default:
				ino.Blocks = append(ino.Blocks, h)
			}
		}
		if util.CeilDiv(int64(ino.Size), int64(l.BlockSize)) != int64(len(ino.Blocks)) {
			return errors.Wrapf(errCorrupt, "inode %d size %d with %d blocks", k, ino.Size, len(ino.Blocks))
		}
		if ino.InUse {
			if self.inodeMap.IsFree(k) {
				return errors.Wrapf(errCorrupt, "inode %d in use but free", k)
			}
			for _, h := range ino.Blocks {
				if self.blockMap.IsFree(int(h)) {
					return errors.Wrapf(errCorrupt, "inode %d block %d free", k, h)
				}
			}
		}
		self.inodes[k] = ino
	}

	dir := s.blocks(l.DirectoryStart, l.DirectoryBlocks)
	for k := range self.entries {
		b := dir[k*directoryEntrySize : (k+1)*directoryEntrySize]
		e := Entry{Inode: int32(binary.LittleEndian.Uint32(b[NameLength+4:]))}
		name := b[:NameLength]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		e.Name = string(name)
		inUse, ok := byteBool(b[NameLength])
		if !ok || e.Inode < noHandle || int(e.Inode) >= l.NumFiles {
			return errors.Wrapf(errCorrupt, "directory entry %d", k)
		}
		e.InUse = inUse
		if e.InUse && (e.Name == "" || e.Inode == noHandle || !self.inodes[e.Inode].InUse) {
			return errors.Wrapf(errCorrupt, "directory entry %d refers to unused inode", k)
		}
		self.entries[k] = e
	}
	self.rebuildOwners()
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func byteBool(b byte) (value, ok bool) {
	return b == 1, b <= 1
}
