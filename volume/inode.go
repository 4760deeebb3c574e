/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 13:30:02 2018 mstenber
 * Last modified: Tue Mar 27 13:51:40 2018 mstenber
 * Edit time:     12 min
 *
 */

package volume

import "fmt"

type Attribute uint8

const (
	Hidden Attribute = 1 << iota
	ReadOnly
)

// String gives the attribute byte as 8 binary digits, most
// significant first.
func (self Attribute) String() string {
	return fmt.Sprintf("%08b", uint8(self))
}

// Inode describes file content. Blocks holds the data block handles
// in file order; on the image the list is terminated by noHandle.
type Inode struct {
	Size       uint32
	InUse      bool
	Attributes Attribute
	Reclaimed  bool
	Blocks     []int32
}

func (self *Inode) isHidden() bool {
	return self.Attributes&Hidden != 0
}

func (self *Inode) isReadOnly() bool {
	return self.Attributes&ReadOnly != 0
}
