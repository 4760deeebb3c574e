/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Mar 29 09:12:40 2018 mstenber
 * Last modified: Thu Mar 29 11:03:17 2018 mstenber
 * Edit time:     71 min
 *
 */

// mfs package provides the volume session: at most one volume is
// active at a time, loaded from and saved to the configured storage
// backend as whole.
package mfs

import (
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/storage/factory"
	"github.com/kimho912/file-system/volume"
	"github.com/pkg/errors"
)

type Configuration struct {
	Geometry volume.Geometry

	// BackendName is one of factory.List(); default is the flat
	// image file.
	BackendName string

	// If Password is set, the volume is stored encrypted (only
	// block-granular backends support it).
	Password, Salt string
	Iterations     int
}

type Session struct {
	config  Configuration
	path    string
	backend storage.Backend
	volume  *volume.Volume
}

func (self Session) Init(config Configuration) *Session {
	if config.Geometry == (volume.Geometry{}) {
		config.Geometry = volume.DefaultGeometry
	}
	if config.BackendName == "" {
		config.BackendName = factory.DefaultBackend
	}
	self.config = config
	return &self
}

func (self *Session) IsOpen() bool {
	return self.volume != nil
}

// Path returns the storage path of the active volume.
func (self *Session) Path() string {
	return self.path
}

func named(err error, path string) error {
	if e, ok := err.(*volume.Error); ok && e.Name == "" {
		e.Name = path
	}
	return err
}

func (self *Session) openBackend(op, path string, create bool) (storage.Backend, error) {
	config := factory.CryptoBackendConfiguration{
		BackendConfiguration: storage.BackendConfiguration{
			Path:      path,
			BlockSize: self.config.Geometry.BlockSize,
			Create:    create},
		BackendName: self.config.BackendName,
		Password:    self.config.Password,
		Salt:        self.config.Salt,
		Iterations:  self.config.Iterations}
	be, err := factory.NewCryptoBackend(config)
	if err != nil {
		kind := volume.ErrIOError
		if errors.Cause(err) == storage.ErrNotFound {
			kind = volume.ErrFileNotFound
		}
		return nil, &volume.Error{Op: op, Name: path, Kind: kind, Err: err}
	}
	return be, nil
}

// drop forgets the active volume without saving it.
func (self *Session) drop() error {
	if self.volume == nil {
		return nil
	}
	path := self.path
	mlog.Printf2("mfs/session", " dropping unsaved %v", path)
	err := self.backend.Close()
	self.volume = nil
	self.backend = nil
	self.path = ""
	if err != nil {
		return &volume.Error{Op: "close", Name: path, Kind: volume.ErrIOError, Err: err}
	}
	return nil
}

// CreateVolume makes a new, empty volume active; it is stored at
// path by Save.
func (self *Session) CreateVolume(path string) error {
	mlog.Printf2("mfs/session", "s.CreateVolume %v", path)
	if err := self.drop(); err != nil {
		return err
	}
	v, err := volume.New(self.config.Geometry)
	if err != nil {
		return err
	}
	be, err := self.openBackend("createfs", path, true)
	if err != nil {
		return err
	}
	self.volume = v
	self.backend = be
	self.path = path
	return nil
}

// Open makes the volume stored at path active.
func (self *Session) Open(path string) error {
	mlog.Printf2("mfs/session", "s.Open %v", path)
	if err := self.drop(); err != nil {
		return err
	}
	be, err := self.openBackend("open", path, false)
	if err != nil {
		return err
	}
	v, err := volume.Load(self.config.Geometry, be)
	if err != nil {
		be.Close()
		return named(err, path)
	}
	self.volume = v
	self.backend = be
	self.path = path
	return nil
}

func (self *Session) active(op string) (*volume.Volume, error) {
	if self.volume == nil {
		return nil, &volume.Error{Op: op, Kind: volume.ErrNotOpen}
	}
	return self.volume, nil
}

// Save writes the active volume to its path.
func (self *Session) Save() error {
	mlog.Printf2("mfs/session", "s.Save %v", self.path)
	v, err := self.active("savefs")
	if err != nil {
		return err
	}
	return named(v.Save(self.backend), self.path)
}

// Close deactivates the volume; unsaved changes are lost.
func (self *Session) Close() error {
	mlog.Printf2("mfs/session", "s.Close %v", self.path)
	if _, err := self.active("close"); err != nil {
		return err
	}
	return self.drop()
}

func (self *Session) List(mode volume.ListMode) ([]volume.Listing, error) {
	v, err := self.active("list")
	if err != nil {
		return nil, err
	}
	return v.List(mode)
}

func (self *Session) FreeBytes() (int64, error) {
	v, err := self.active("df")
	if err != nil {
		return 0, err
	}
	return v.FreeBytes(), nil
}

func (self *Session) Insert(hostPath string) error {
	v, err := self.active("insert")
	if err != nil {
		return err
	}
	return v.Insert(hostPath)
}

// Retrieve copies the file to outPath, or to the file name in the
// current directory if outPath is empty.
func (self *Session) Retrieve(name, outPath string) error {
	v, err := self.active("retrieve")
	if err != nil {
		return err
	}
	return v.Retrieve(name, outPath)
}

func (self *Session) ReadRange(name string, start, length int64) ([]byte, error) {
	v, err := self.active("read")
	if err != nil {
		return nil, err
	}
	return v.ReadRange(name, start, length)
}

func (self *Session) Delete(name string) error {
	v, err := self.active("delete")
	if err != nil {
		return err
	}
	return v.Delete(name)
}

func (self *Session) Undelete(name string) error {
	v, err := self.active("undelete")
	if err != nil {
		return err
	}
	return v.Undelete(name)
}

func (self *Session) SetAttribute(name string, op volume.AttributeOp) error {
	v, err := self.active("attrib")
	if err != nil {
		return err
	}
	return v.SetAttribute(name, op)
}
