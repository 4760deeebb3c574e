/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 12:20:31 2018 mstenber
 * Last modified: Wed Mar 28 15:49:02 2018 mstenber
 * Edit time:     141 min
 *
 */

package volume

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

// 64 blocks of 64 bytes; 20 reserved, 44 in the data pool.
var smallGeometry = Geometry{BlockSize: 64, NumBlocks: 64, NumFiles: 8, BlocksPerFile: 16}

func newSmallVolume(t *testing.T) *Volume {
	v, err := New(smallGeometry)
	assert.Nil(t, err)
	return v
}

func randomBytes(n int) []byte {
	rng := util.GetSeededRng()
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return b
}

func insertBytes(t *testing.T, v *Volume, name string, data []byte) {
	t.Helper()
	assert.Nil(t, v.InsertFrom(name, bytes.NewReader(data)))
}

func retrieveBytes(t *testing.T, v *Volume, name string) []byte {
	t.Helper()
	var buf bytes.Buffer
	assert.Nil(t, v.RetrieveTo(name, &buf))
	return buf.Bytes()
}

func writeHostFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.Nil(t, ioutil.WriteFile(path, data, 0600))
	return path
}

func TestLayout(t *testing.T) {
	t.Parallel()

	l := DefaultGeometry.Layout()
	assert.Equal(t, l.DirectoryStart, 0)
	assert.Equal(t, l.InodeMapStart, 18)
	assert.Equal(t, l.BlockMapStart, 19)
	assert.Equal(t, l.InodeTableStart, 27)
	assert.Equal(t, l.FirstDataBlock, 1053)
	assert.Equal(t, DefaultGeometry.MaxFileSize(), int64(1024*1024))
	assert.Equal(t, DefaultGeometry.CapacityBytes(), int64(64*1024*1024))

	l = smallGeometry.Layout()
	assert.Equal(t, l.FirstDataBlock, 20)
	assert.Equal(t, l.DataBlocks(), 44)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.Nil(t, DefaultGeometry.Validate())
	assert.Nil(t, smallGeometry.Validate())
	for _, g := range []Geometry{
		{},
		{BlockSize: 64, NumBlocks: 64, NumFiles: 0, BlocksPerFile: 16},
		{BlockSize: -1, NumBlocks: 64, NumFiles: 8, BlocksPerFile: 16},
		// Reserved region eats everything
		{BlockSize: 64, NumBlocks: 20, NumFiles: 8, BlocksPerFile: 16},
	} {
		assert.Equal(t, errors.Cause(g.Validate()), ErrInvalidGeometry, g)
		_, err := New(g)
		assert.Equal(t, errors.Cause(err), ErrInvalidGeometry, g)
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	assert.Equal(t, v.FreeBytes(), int64(44*64))
	assert.Equal(t, v.CapacityBytes(), int64(64*64))
	_, err := v.List(ListShowHidden)
	assert.Equal(t, errors.Cause(err), ErrNoFilesFound)

	insertBytes(t, v, "x", []byte("data"))
	v.Initialize()
	assert.Equal(t, v.FreeBytes(), int64(44*64))
	_, err = v.ReadRange("x", 0, 1)
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
}

func TestHello(t *testing.T) {
	t.Parallel()

	v, err := New(DefaultGeometry)
	assert.Nil(t, err)
	dir, err := ioutil.TempDir("", "volume")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	free := v.FreeBytes()
	assert.Nil(t, v.Insert(writeHostFile(t, dir, "hello.txt", []byte("hi"))))
	assert.Equal(t, v.FreeBytes(), free-1024)

	l, err := v.List(ListDefault)
	assert.Nil(t, err)
	assert.Equal(t, l, []Listing{{Name: "hello.txt"}})

	b, err := v.ReadRange("hello.txt", 0, 2)
	assert.Nil(t, err)
	assert.Equal(t, b, []byte{0x68, 0x69})

	assert.Nil(t, v.SetAttribute("hello.txt", SetHidden))
	_, err = v.List(ListDefault)
	assert.Equal(t, errors.Cause(err), ErrNoFilesFound)
	_, err = v.List(ListShowAttributes)
	assert.Equal(t, errors.Cause(err), ErrNoFilesFound)
	l, err = v.List(ListShowHidden)
	assert.Nil(t, err)
	assert.Equal(t, l, []Listing{{Name: "hello.txt", Attributes: Hidden}})

	out := filepath.Join(dir, "out.txt")
	assert.Nil(t, v.Retrieve("hello.txt", out))
	got, err := ioutil.ReadFile(out)
	assert.Nil(t, err)
	assert.Equal(t, got, []byte("hi"))
}

func TestInsertRetrieveSizes(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 63, 64, 65, 128, 1000, 1023, 1024} {
		v := newSmallVolume(t)
		data := randomBytes(n)
		free := v.FreeBytes()
		insertBytes(t, v, "f", data)
		used := util.CeilDiv(int64(n), 64) * 64
		assert.Equal(t, v.FreeBytes(), free-used, n)
		assert.True(t, bytes.Equal(retrieveBytes(t, v, "f"), data), n)
	}
}

func TestInsertHostErrors(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	dir, err := ioutil.TempDir("", "volume")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	err = v.Insert(filepath.Join(dir, "missing"))
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)

	// Directories are not files
	err = v.Insert(dir)
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)

	long := string(bytes.Repeat([]byte("n"), NameLength+1))
	err = v.Insert(writeHostFile(t, dir, long, nil))
	assert.Equal(t, errors.Cause(err), ErrNameTooLong)
	err = v.InsertFrom("a\x00b", bytes.NewReader(nil))
	assert.Equal(t, errors.Cause(err), ErrInvalidName)
	assert.Nil(t, v.Insert(writeHostFile(t, dir, long[:NameLength], nil)))

	// Missing host file is reported before its name is checked
	err = v.Insert(filepath.Join(dir, "missing"+long))
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)

	free := v.FreeBytes()
	err = v.Insert(writeHostFile(t, dir, "big", make([]byte, 1025)))
	assert.Equal(t, errors.Cause(err), ErrFileTooLarge)
	assert.Equal(t, v.FreeBytes(), free)
}

func TestInsufficientSpace(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	dir, err := ioutil.TempDir("", "volume")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	insertBytes(t, v, "a", make([]byte, 1024))
	insertBytes(t, v, "b", make([]byte, 1024))
	assert.Equal(t, v.FreeBytes(), int64(12*64))

	err = v.Insert(writeHostFile(t, dir, "c", make([]byte, 12*64+1)))
	assert.Equal(t, errors.Cause(err), ErrInsufficientSpace)
	assert.Equal(t, v.FreeBytes(), int64(12*64))

	// Exactly full, then one more byte
	assert.Nil(t, v.Insert(writeHostFile(t, dir, "d", make([]byte, 12*64))))
	assert.Equal(t, v.FreeBytes(), int64(0))
	err = v.Insert(writeHostFile(t, dir, "e", []byte{1}))
	assert.Equal(t, errors.Cause(err), ErrInsufficientSpace)

	// Size unknown up front; found out while copying
	err = v.InsertFrom("e", bytes.NewReader([]byte{1}))
	assert.Equal(t, errors.Cause(err), ErrNoFreeBlock)
	assert.Equal(t, v.FreeBytes(), int64(0))
}

func TestTooManyFiles(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	for i := 0; i < smallGeometry.NumFiles; i++ {
		insertBytes(t, v, "f", []byte{byte(i)})
	}
	err := v.InsertFrom("f", bytes.NewReader([]byte{42}))
	assert.Equal(t, errors.Cause(err), ErrNoFreeDirectoryEntry)

	// Duplicates are fine; the first one is found
	b, err := v.ReadRange("f", 0, 1)
	assert.Nil(t, err)
	assert.Equal(t, b, []byte{0})
}

func TestDeterministicAllocation(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	insertBytes(t, v, "a", make([]byte, 10))
	insertBytes(t, v, "b", make([]byte, 130))
	insertBytes(t, v, "c", make([]byte, 64))
	assert.Equal(t, v.inodes[0].Blocks, []int32{20})
	assert.Equal(t, v.inodes[1].Blocks, []int32{21, 22, 23})
	assert.Equal(t, v.inodes[2].Blocks, []int32{24})

	// Freed handles are reused lowest first
	assert.Nil(t, v.Delete("b"))
	insertBytes(t, v, "d", make([]byte, 65))
	assert.Equal(t, v.entries[1].Name, "d")
	assert.Equal(t, v.inodes[1].Blocks, []int32{21, 22})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	free := v.FreeBytes()
	insertBytes(t, v, "a", randomBytes(100))
	assert.Nil(t, v.Delete("a"))
	assert.Equal(t, v.FreeBytes(), free)

	var buf bytes.Buffer
	err := v.RetrieveTo("a", &buf)
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
	err = v.Delete("a")
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
	_, err = v.ReadRange("a", 0, 1)
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
}

func TestReadOnly(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	data := randomBytes(100)
	insertBytes(t, v, "a", data)
	assert.Nil(t, v.SetAttribute("a", SetReadOnly))
	err := v.Delete("a")
	assert.Equal(t, errors.Cause(err), ErrReadOnlyViolation)
	assert.True(t, bytes.Equal(retrieveBytes(t, v, "a"), data))

	l, err := v.List(ListShowAttributes)
	assert.Nil(t, err)
	assert.Equal(t, l[0].Attributes.String(), "00000010")

	assert.Nil(t, v.SetAttribute("a", ClearReadOnly))
	assert.Nil(t, v.Delete("a"))
}

func TestAttributeOps(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	err := v.SetAttribute("a", SetHidden)
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)

	insertBytes(t, v, "a", nil)
	err = v.SetAttribute("a", AttributeOp("+x"))
	assert.Equal(t, errors.Cause(err), ErrInvalidAttributeOp)

	for _, s := range []string{"+h", "+r", "-h"} {
		op, err := ParseAttributeOp(s)
		assert.Nil(t, err)
		assert.Nil(t, v.SetAttribute("a", op))
	}
	assert.Equal(t, v.inodes[0].Attributes, ReadOnly)

	_, err = ParseAttributeOp("h")
	assert.Equal(t, errors.Cause(err), ErrInvalidAttributeOp)

	// Deleted files can still be changed
	assert.Nil(t, v.SetAttribute("a", ClearReadOnly))
	assert.Nil(t, v.Delete("a"))
	assert.Nil(t, v.SetAttribute("a", SetHidden))
	assert.Nil(t, v.Undelete("a"))
	l, err := v.List(ListShowHidden)
	assert.Nil(t, err)
	assert.Equal(t, l, []Listing{{Name: "a", Attributes: Hidden}})
}

func TestUndelete(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	data := randomBytes(150)
	insertBytes(t, v, "a", data)
	insertBytes(t, v, "b", randomBytes(10))
	free := v.FreeBytes()
	assert.Nil(t, v.Delete("a"))
	assert.Nil(t, v.Undelete("a"))
	assert.Equal(t, v.FreeBytes(), free)
	assert.True(t, bytes.Equal(retrieveBytes(t, v, "a"), data))

	// Live file: nothing to do
	assert.Nil(t, v.Undelete("a"))
	err := v.Undelete("nope")
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
}

func TestUndeleteReclaimed(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	insertBytes(t, v, "a", randomBytes(64))   // entry 0 inode 0 block 20
	insertBytes(t, v, "c", randomBytes(64))   // entry 1 inode 1 block 21
	insertBytes(t, v, "keep", randomBytes(1)) // block 22
	assert.Nil(t, v.Delete("c"))
	assert.Nil(t, v.Delete("a"))

	// Takes entry 0, inode 0 and blocks 20, 21
	insertBytes(t, v, "b", randomBytes(128))
	err := v.Undelete("c")
	assert.Equal(t, errors.Cause(err), ErrDataReclaimed)
	assert.True(t, v.inodes[1].Reclaimed)

	// The entry of a is gone entirely
	err = v.Undelete("a")
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)

	// Tombstone whose inode slot is reused loses its reference
	assert.Nil(t, v.Delete("b"))
	v.entries[5] = v.entries[0]
	v.entries[0] = emptyEntry()
	insertBytes(t, v, "x", nil)
	assert.Equal(t, v.entries[5].Inode, noHandle)
	err = v.Undelete("b")
	assert.Equal(t, errors.Cause(err), ErrDataReclaimed)
}

type failingReader struct{}

func (self failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestInsertRollback(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	data := randomBytes(100)
	insertBytes(t, v, "a", data)
	assert.Nil(t, v.Delete("a"))
	free := v.FreeBytes()
	image := append([]byte(nil), v.Image()...)

	r := io.MultiReader(bytes.NewReader(randomBytes(100)), failingReader{})
	err := v.InsertFrom("b", r)
	assert.Equal(t, errors.Cause(err), ErrIOError)
	assert.Equal(t, v.FreeBytes(), free)

	err = v.InsertFrom("b", bytes.NewReader(make([]byte, 1025)))
	assert.Equal(t, errors.Cause(err), ErrFileTooLarge)
	assert.Equal(t, v.FreeBytes(), free)
	assert.True(t, bytes.Equal(v.Image(), image))

	assert.Nil(t, v.Undelete("a"))
	assert.True(t, bytes.Equal(retrieveBytes(t, v, "a"), data))
}

func TestRetrieveErrors(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	dir, err := ioutil.TempDir("", "volume")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	err = v.Retrieve("a", filepath.Join(dir, "a"))
	assert.Equal(t, errors.Cause(err), ErrFileNotFound)
	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))

	insertBytes(t, v, "a", []byte("content"))
	err = v.Retrieve("a", filepath.Join(dir, "nodir", "a"))
	assert.Equal(t, errors.Cause(err), ErrIOError)
}

func TestErrorFormat(t *testing.T) {
	t.Parallel()

	v := newSmallVolume(t)
	err := v.Delete("a")
	assert.Equal(t, err.Error(), "delete a: file not found")
	e, ok := err.(*Error)
	assert.True(t, ok)
	assert.Equal(t, e.Kind, ErrFileNotFound)
}
