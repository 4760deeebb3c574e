/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 08:40:12 2018 mstenber
 * Last modified: Wed Mar 28 09:05:37 2018 mstenber
 * Edit time:     19 min
 *
 */

package volume

import (
	"github.com/kimho912/file-system/mlog"
)

// AttributeOp sets or clears one attribute; it is spelled as +h, -h,
// +r or -r.
type AttributeOp string

const (
	SetHidden     AttributeOp = "+h"
	ClearHidden   AttributeOp = "-h"
	SetReadOnly   AttributeOp = "+r"
	ClearReadOnly AttributeOp = "-r"
)

func ParseAttributeOp(s string) (AttributeOp, error) {
	op := AttributeOp(s)
	if _, _, ok := op.decode(); !ok {
		return "", newError("attrib", s, ErrInvalidAttributeOp)
	}
	return op, nil
}

func (self AttributeOp) decode() (attr Attribute, set bool, ok bool) {
	switch self {
	case SetHidden:
		return Hidden, true, true
	case ClearHidden:
		return Hidden, false, true
	case SetReadOnly:
		return ReadOnly, true, true
	case ClearReadOnly:
		return ReadOnly, false, true
	}
	return 0, false, false
}

// SetAttribute applies op to the first file called name. Deleted
// files can be changed too, as long as they still have an inode.
func (self *Volume) SetAttribute(name string, op AttributeOp) error {
	const opName = "attrib"
	mlog.Printf2("volume/attrib", "v.SetAttribute %v %v", name, op)
	d := self.findByName(name)
	if d < 0 || self.entries[d].Inode == noHandle {
		return newError(opName, name, ErrFileNotFound)
	}
	attr, set, ok := op.decode()
	if !ok {
		return newError(opName, name, ErrInvalidAttributeOp)
	}
	ino := &self.inodes[self.entries[d].Inode]
	if set {
		ino.Attributes |= attr
	} else {
		ino.Attributes &^= attr
	}
	return nil
}
