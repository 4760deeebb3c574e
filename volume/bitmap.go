/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 11:45:30 2018 mstenber
 * Last modified: Tue Mar 27 12:10:02 2018 mstenber
 * Edit time:     21 min
 *
 */

package volume

// Bitmap tracks free/used state of n items, one bit each, least
// significant bit first. Set bit means used.
type Bitmap struct {
	bits []byte
	n    int
}

func NewBitmap(n int) *Bitmap {
	return &Bitmap{bits: make([]byte, (n+7)/8), n: n}
}

func (self *Bitmap) Len() int {
	return self.n
}

func (self *Bitmap) IsFree(i int) bool {
	return self.bits[i/8]&(1<<uint(i%8)) == 0
}

func (self *Bitmap) SetUsed(i int) {
	self.bits[i/8] |= 1 << uint(i%8)
}

func (self *Bitmap) SetFree(i int) {
	self.bits[i/8] &^= 1 << uint(i%8)
}

// FirstFree returns the lowest free index in [from, to), or -1.
func (self *Bitmap) FirstFree(from, to int) int {
	for i := from; i < to; i++ {
		if i%8 == 0 && i+8 <= to && self.bits[i/8] == 0xff {
			i += 7
			continue
		}
		if self.IsFree(i) {
			return i
		}
	}
	return -1
}

// CountFree returns the number of free indexes in [from, to).
func (self *Bitmap) CountFree(from, to int) int {
	count := 0
	for i := from; i < to; i++ {
		if self.IsFree(i) {
			count++
		}
	}
	return count
}

// Bytes returns the encoded form; it aliases the bitmap.
func (self *Bitmap) Bytes() []byte {
	return self.bits
}

// setBytes replaces the content from encoded form. Bits beyond n are
// ignored.
func (self *Bitmap) setBytes(b []byte) {
	copy(self.bits, b)
	if r := self.n % 8; r != 0 {
		self.bits[len(self.bits)-1] &= byte(1<<uint(r)) - 1
	}
}
