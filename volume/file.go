/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 16:03:40 2018 mstenber
 * Last modified: Tue Mar 27 17:20:08 2018 mstenber
 * Edit time:     53 min
 *
 */

package volume

import (
	"io"
	"os"

	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/util"
)

// Retrieve writes content of the file to host file at outPath; if
// outPath is empty, the file name is used.
func (self *Volume) Retrieve(name, outPath string) (err error) {
	const op = "retrieve"
	mlog.Printf2("volume/file", "v.Retrieve %v to %v", name, outPath)
	if self.findLive(name) < 0 {
		return newError(op, name, ErrFileNotFound)
	}
	if outPath == "" {
		outPath = name
	}
	f, err := os.Create(outPath)
	if err != nil {
		return wrapError(op, name, ErrIOError, err)
	}
	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = wrapError(op, name, ErrIOError, cerr)
		}
	}()
	return self.RetrieveTo(name, f)
}

// RetrieveTo writes content of the file to w.
func (self *Volume) RetrieveTo(name string, w io.Writer) error {
	const op = "retrieve"
	d := self.findLive(name)
	if d < 0 {
		return newError(op, name, ErrFileNotFound)
	}
	ino := &self.inodes[self.entries[d].Inode]
	left := int(ino.Size)
	for _, h := range ino.Blocks {
		b := self.store.block(int(h))
		n := util.IMin(left, len(b))
		if _, err := w.Write(b[:n]); err != nil {
			return wrapError(op, name, ErrIOError, err)
		}
		left -= n
	}
	return nil
}

// ReadRange returns length bytes of the file starting at start.
func (self *Volume) ReadRange(name string, start, length int64) ([]byte, error) {
	const op = "read"
	mlog.Printf2("volume/file", "v.ReadRange %v %d+%d", name, start, length)
	d := self.findLive(name)
	if d < 0 {
		return nil, newError(op, name, ErrFileNotFound)
	}
	ino := &self.inodes[self.entries[d].Inode]
	size := int64(ino.Size)
	if length <= 0 || start < 0 || start > size || length > size-start {
		return nil, newError(op, name, ErrInvalidRange)
	}
	bs := int64(self.layout.BlockSize)
	result := make([]byte, 0, length)
	for p, end := start, start+length; p < end; {
		b := self.store.block(int(ino.Blocks[p/bs]))
		ofs := p % bs
		n := util.IMin(int(bs-ofs), int(end-p))
		result = append(result, b[ofs:ofs+int64(n)]...)
		p += int64(n)
	}
	return result, nil
}

// Delete tombstones the file. Its inode and blocks become free, but
// the content remains until reused.
func (self *Volume) Delete(name string) error {
	const op = "delete"
	mlog.Printf2("volume/file", "v.Delete %v", name)
	d := self.findLive(name)
	if d < 0 {
		return newError(op, name, ErrFileNotFound)
	}
	e := &self.entries[d]
	ino := &self.inodes[e.Inode]
	if ino.isReadOnly() {
		return newError(op, name, ErrReadOnlyViolation)
	}
	for _, h := range ino.Blocks {
		self.freeBlock(h)
	}
	self.freeInode(e.Inode)
	ino.InUse = false
	e.InUse = false
	mlog.Printf2("volume/file", " entry %d inode %d freed %d blocks", d, e.Inode, len(ino.Blocks))
	return nil
}

// Undelete restores the first deleted file called name, provided
// none of its content has been reused since. Undeleting a file that
// exists is a no-op.
func (self *Volume) Undelete(name string) error {
	const op = "undelete"
	mlog.Printf2("volume/file", "v.Undelete %v", name)
	d := self.findTombstone(name)
	if d < 0 {
		if self.findLive(name) >= 0 {
			return nil
		}
		return newError(op, name, ErrFileNotFound)
	}
	e := &self.entries[d]
	i := e.Inode
	if i == noHandle {
		return newError(op, name, ErrDataReclaimed)
	}
	ino := &self.inodes[i]
	if ino.InUse || ino.Reclaimed || !self.inodeMap.IsFree(int(i)) {
		return newError(op, name, ErrDataReclaimed)
	}
	for _, h := range ino.Blocks {
		if !self.blockMap.IsFree(int(h)) || self.owners[h] != i {
			return newError(op, name, ErrDataReclaimed)
		}
	}
	for _, h := range ino.Blocks {
		self.blockMap.SetUsed(int(h))
	}
	self.inodeMap.SetUsed(int(i))
	ino.InUse = true
	e.InUse = true
	mlog.Printf2("volume/file", " restored entry %d inode %d", d, i)
	return nil
}
