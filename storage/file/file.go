/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:44:41 2018 mstenber
 * Last modified: Mon Mar 26 14:22:50 2018 mstenber
 * Edit time:     104 min
 *
 */

package file

import (
	"io"
	"os"

	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/pkg/errors"
)

// fileBackend stores the image as single flat host file: block 0
// first, no header, exactly len(image) bytes.
type fileBackend struct {
	path string
}

var _ storage.Backend = &fileBackend{}

func NewFileBackend() storage.Backend {
	return &fileBackend{}
}

func (self *fileBackend) Init(config storage.BackendConfiguration) error {
	mlog.Printf2("storage/file/file", "fb.Init %v", config.Path)
	if config.Codec != nil {
		return storage.ErrCodecUnsupported
	}
	self.path = config.Path
	if config.Create {
		return nil
	}
	fi, err := os.Stat(self.path)
	if os.IsNotExist(err) {
		return errors.Wrapf(storage.ErrNotFound, "%s", self.path)
	}
	if err != nil {
		return errors.Wrap(err, "os.Stat")
	}
	if !fi.Mode().IsRegular() {
		return errors.Errorf("%s is not a regular file", self.path)
	}
	return nil
}

func (self *fileBackend) Close() error {
	return nil
}

func (self *fileBackend) Load(image []byte) error {
	mlog.Printf2("storage/file/file", "fb.Load %v (%d b)", self.path, len(image))
	f, err := os.Open(self.path)
	if os.IsNotExist(err) {
		return errors.Wrapf(storage.ErrNotFound, "%s", self.path)
	}
	if err != nil {
		return errors.Wrap(err, "os.Open")
	}
	defer f.Close()

	n, err := io.ReadFull(f, image)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(storage.ErrImageSize, "%s has only %d bytes", self.path, n)
	}
	if err != nil {
		return errors.Wrap(err, "reading image")
	}

	// Longer than expected is not our image either
	var extra [1]byte
	n, err = f.Read(extra[:])
	if n > 0 {
		return errors.Wrapf(storage.ErrImageSize, "%s is longer than %d bytes", self.path, len(image))
	}
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading image")
	}
	return nil
}

func (self *fileBackend) Save(image []byte) (err error) {
	mlog.Printf2("storage/file/file", "fb.Save %v (%d b)", self.path, len(image))
	f, err := os.OpenFile(self.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "os.OpenFile")
	}
	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = errors.Wrap(cerr, "closing image")
		}
	}()
	_, err = f.Write(image)
	if err != nil {
		err = errors.Wrap(err, "writing image")
	}
	return
}
