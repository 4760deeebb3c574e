/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 14:41:33 2018 mstenber
 * Last modified: Tue Mar 27 16:02:19 2018 mstenber
 * Edit time:     61 min
 *
 */

package volume

import (
	"io"
	"os"
	"path/filepath"

	"github.com/kimho912/file-system/mlog"
)

const opInsert = "insert"

// Insert copies host file into the volume. The file is stored under
// the last element of hostPath.
func (self *Volume) Insert(hostPath string) error {
	name := filepath.Base(hostPath)
	mlog.Printf2("volume/insert", "v.Insert %v as %v", hostPath, name)
	f, err := os.Open(hostPath)
	if err != nil {
		return wrapError(opInsert, name, ErrFileNotFound, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return wrapError(opInsert, name, ErrIOError, err)
	}
	if !fi.Mode().IsRegular() {
		return newError(opInsert, name, ErrFileNotFound)
	}
	if err := checkName(name); err != nil {
		return newError(opInsert, name, err)
	}
	return self.insert(name, f, fi.Size())
}

// InsertFrom stores content of r as new file called name.
func (self *Volume) InsertFrom(name string, r io.Reader) error {
	mlog.Printf2("volume/insert", "v.InsertFrom %v", name)
	if err := checkName(name); err != nil {
		return newError(opInsert, name, err)
	}
	return self.insert(name, r, -1)
}

// insert does the work; size is the expected length, or negative if
// unknown.
func (self *Volume) insert(name string, r io.Reader, size int64) (err error) {
	if size > self.layout.MaxFileSize() {
		return newError(opInsert, name, ErrFileTooLarge)
	}
	if size > self.FreeBytes() {
		return newError(opInsert, name, ErrInsufficientSpace)
	}
	d, err := self.allocateEntry()
	if err != nil {
		return newError(opInsert, name, err)
	}
	i, err := self.allocateInode()
	if err != nil {
		return newError(opInsert, name, err)
	}

	// Until commit, only the bitmaps change; content of the
	// (possibly tombstoned) blocks stays as it was.
	var blocks []int32
	defer func() {
		if err == nil {
			return
		}
		mlog.Printf2("volume/insert", " rolling back %d blocks: %v", len(blocks), err)
		for _, h := range blocks {
			self.freeBlock(h)
		}
		self.freeInode(i)
	}()

	bs := self.layout.BlockSize
	maxSize := self.layout.MaxFileSize()
	var chunks [][]byte
	var total int64
	for {
		buf := make([]byte, bs)
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if total+int64(n) > maxSize {
				return newError(opInsert, name, ErrFileTooLarge)
			}
			h, aerr := self.allocateBlock()
			if aerr != nil {
				return newError(opInsert, name, aerr)
			}
			blocks = append(blocks, h)
			chunks = append(chunks, buf)
			total += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return wrapError(opInsert, name, ErrIOError, rerr)
		}
	}

	// Commit
	self.claim(d, i, blocks)
	for k, h := range blocks {
		// ReadFull left the tail of a short final chunk zeroed
		copy(self.store.block(int(h)), chunks[k])
	}
	self.inodes[i] = Inode{Size: uint32(total), InUse: true, Blocks: blocks}
	self.entries[d] = Entry{Name: name, InUse: true, Inode: i}
	mlog.Printf2("volume/insert", " stored %d bytes in entry %d inode %d blocks %v", total, d, i, blocks)
	return nil
}
