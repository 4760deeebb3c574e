/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 28 09:06:50 2018 mstenber
 * Last modified: Wed Mar 28 09:31:12 2018 mstenber
 * Edit time:     11 min
 *
 */

package volume

type ListMode int

const (
	ListDefault ListMode = iota
	ListShowAttributes
	ListShowHidden
)

type Listing struct {
	Name       string
	Attributes Attribute
}

// List returns the live files in directory order. Hidden files are
// included only with ListShowHidden.
func (self *Volume) List(mode ListMode) ([]Listing, error) {
	var result []Listing
	for _, e := range self.entries {
		if !e.InUse {
			continue
		}
		ino := &self.inodes[e.Inode]
		if ino.isHidden() && mode != ListShowHidden {
			continue
		}
		result = append(result, Listing{Name: e.Name, Attributes: ino.Attributes})
	}
	if len(result) == 0 {
		return nil, newError("list", "", ErrNoFilesFound)
	}
	return result, nil
}
