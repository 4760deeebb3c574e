/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 13:04:51 2018 mstenber
 * Last modified: Tue Mar 27 13:29:33 2018 mstenber
 * Edit time:     14 min
 *
 */

package volume

import (
	"strings"
)

// Entry is a directory table entry. Deleted entries keep their name
// and inode reference until the slot is reused.
type Entry struct {
	Name  string
	InUse bool
	Inode int32
}

func emptyEntry() Entry {
	return Entry{Inode: noHandle}
}

func (self Entry) isTombstone() bool {
	return !self.InUse && self.Name != ""
}

func (self *Volume) find(name string, match func(e Entry) bool) int {
	for k, e := range self.entries {
		if e.Name == name && match(e) {
			return k
		}
	}
	return -1
}

// findByName returns the first entry with the name, deleted or not.
func (self *Volume) findByName(name string) int {
	return self.find(name, func(e Entry) bool { return e.InUse || e.isTombstone() })
}

func (self *Volume) findLive(name string) int {
	return self.find(name, func(e Entry) bool { return e.InUse })
}

func (self *Volume) findTombstone(name string) int {
	return self.find(name, Entry.isTombstone)
}

// allocateEntry returns the first entry not in use.
func (self *Volume) allocateEntry() (int, error) {
	for k, e := range self.entries {
		if !e.InUse {
			return k, nil
		}
	}
	return -1, ErrNoFreeDirectoryEntry
}

func checkName(name string) error {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return ErrInvalidName
	}
	if len(name) > NameLength {
		return ErrNameTooLong
	}
	return nil
}
