/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Mon Mar 26 16:20:11 2018 mstenber
 * Edit time:     49 min
 *
 */

package factory

import (
	"sort"

	"github.com/kimho912/file-system/codec"
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/storage/badger"
	"github.com/kimho912/file-system/storage/bolt"
	"github.com/kimho912/file-system/storage/file"
	"github.com/kimho912/file-system/storage/inmemory"
	"github.com/pkg/errors"
)

type factoryCallback func() storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() storage.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() storage.Backend {
		return bolt.NewBoltBackend()
	},
	"file": func() storage.Backend {
		return file.NewFileBackend()
	}}

// Backends that store blocks individually and can run them through a
// codec.
var codecBackends = map[string]bool{"badger": true, "bolt": true}

// DefaultBackend stores the image as the plain flat file.
const DefaultBackend = "file"

func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SupportsCodec returns true if the named backend can encrypt blocks.
func SupportsCodec(name string) bool {
	return codecBackends[name]
}

func New(name string, config storage.BackendConfiguration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.New %v %v", name, config.Path)
	cb, ok := backendFactories[name]
	if !ok {
		return nil, errors.Errorf("unknown backend %q (possible: %v)", name, List())
	}
	be := cb()
	if err := be.Init(config); err != nil {
		return nil, err
	}
	return be, nil
}

type CryptoBackendConfiguration struct {
	storage.BackendConfiguration
	BackendName    string
	Password, Salt string
	Iterations     int
}

// NewCryptoBackend creates the named backend; if password is set,
// blocks are encrypted with key derived from it.
func NewCryptoBackend(config CryptoBackendConfiguration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.NewCryptoBackend")
	beconfig := config.BackendConfiguration
	beconfig.Codec = nil
	if config.Password != "" {
		if !SupportsCodec(config.BackendName) {
			return nil, errors.Wrapf(storage.ErrCodecUnsupported, "%s", config.BackendName)
		}
		iterations := config.Iterations
		if iterations == 0 {
			iterations = 12345
		}
		salt := config.Salt
		if salt == "" {
			salt = "asdf"
		}
		mlog.Printf2("storage/factory/factory", " with encryption")
		c1, err := codec.EncryptingCodec{}.Init([]byte(config.Password), []byte(salt), iterations)
		if err != nil {
			return nil, err
		}
		beconfig.Codec = codec.CodecChain{}.Init(c1)
	}
	return New(config.BackendName, beconfig)
}
