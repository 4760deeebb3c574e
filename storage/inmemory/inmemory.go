/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Mon Mar 26 16:02:40 2018 mstenber
 * Edit time:     81 min
 *
 */

package inmemory

import (
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
)

// Saved images by path; shared by all instances within the process,
// so that a saved scratch image can be opened again later.
var images = make(map[string][]byte)
var imagesLock util.MutexLocked

// inMemoryBackend provides in-memory storage; data is just copied
// to/from the images map.
type inMemoryBackend struct {
	path string
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	return &inMemoryBackend{}
}

func (self *inMemoryBackend) Init(config storage.BackendConfiguration) error {
	mlog.Printf2("storage/inmemory/inmemory", "im.Init %v", config.Path)
	if config.Codec != nil {
		return storage.ErrCodecUnsupported
	}
	self.path = config.Path
	if config.Create {
		return nil
	}
	defer imagesLock.Locked()()
	if _, ok := images[self.path]; !ok {
		return errors.Wrapf(storage.ErrNotFound, "%s", self.path)
	}
	return nil
}

func (self *inMemoryBackend) Close() error {
	return nil
}

func (self *inMemoryBackend) Load(image []byte) error {
	defer imagesLock.Locked()()
	data, ok := images[self.path]
	if !ok {
		return errors.Wrapf(storage.ErrNotFound, "%s", self.path)
	}
	if len(data) != len(image) {
		return errors.Wrapf(storage.ErrImageSize, "%s has %d bytes, not %d", self.path, len(data), len(image))
	}
	mlog.Printf2("storage/inmemory/inmemory", "im.Load %v", self.path)
	copy(image, data)
	return nil
}

func (self *inMemoryBackend) Save(image []byte) error {
	defer imagesLock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.Save %v", self.path)
	images[self.path] = append([]byte(nil), image...)
	return nil
}

// Remove forgets the saved image at path, if any.
func Remove(path string) {
	defer imagesLock.Locked()()
	delete(images, path)
}
