/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Mon Mar 26 15:01:12 2018 mstenber
 * Edit time:     71 min
 *
 */

package bolt

import (
	"encoding/binary"
	"os"

	bbolt "github.com/coreos/bbolt"
	"github.com/kimho912/file-system/codec"
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
)

var metaKey = []byte("meta")
var blocksKey = []byte("blocks")
var geometryKey = []byte("geometry")

// boltBackend provides on-disk storage in single bbolt database file.
//
// - meta bucket: geometry -> cbor encoded storage.Geometry
// - blocks bucket: big-endian block index -> (codec encoded) block
//
// All-zero blocks are not stored.
type boltBackend struct {
	db        *bbolt.DB
	codec     codec.Codec
	blockSize int
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend() storage.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config storage.BackendConfiguration) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Init %v", config.Path)
	if config.BlockSize <= 0 {
		return errors.Errorf("invalid block size %d", config.BlockSize)
	}
	if !config.Create {
		_, err := os.Stat(config.Path)
		if os.IsNotExist(err) {
			return errors.Wrapf(storage.ErrNotFound, "%s", config.Path)
		}
	}
	db, err := bbolt.Open(config.Path, 0600, nil)
	if err != nil {
		return errors.Wrap(err, "bbolt.Open")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, k := range [][]byte{metaKey, blocksKey} {
			if _, err := tx.CreateBucketIfNotExists(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return errors.Wrap(err, "creating buckets")
	}
	self.db = db
	self.codec = config.Codec
	self.blockSize = config.BlockSize
	return nil
}

func (self *boltBackend) Close() error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Close")
	return self.db.Close()
}

func (self *boltBackend) Load(image []byte) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Load %d b", len(image))
	return self.db.View(func(tx *bbolt.Tx) error {
		gv := tx.Bucket(metaKey).Get(geometryKey)
		if gv == nil {
			return errors.Wrap(storage.ErrNotFound, "no image saved")
		}
		g, err := storage.DecodeGeometry(gv)
		if err != nil {
			return err
		}
		if err = g.Check(self.blockSize, len(image)); err != nil {
			return err
		}
		storage.Zero(image)
		c := tx.Bucket(blocksKey).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(k) != 4 {
				return errors.Errorf("invalid block key %x", k)
			}
			i := int(binary.BigEndian.Uint32(k))
			if i >= g.NumBlocks {
				return errors.Errorf("block %d out of range", i)
			}
			dst := image[i*self.blockSize : (i+1)*self.blockSize]
			if err = storage.DecodeBlock(self.codec, k, v, dst); err != nil {
				return err
			}
		}
		return nil
	})
}

func (self *boltBackend) Save(image []byte) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Save %d b", len(image))
	return self.db.Update(func(tx *bbolt.Tx) error {
		gv, err := storage.EncodeGeometry(storage.ImageGeometry(image, self.blockSize))
		if err != nil {
			return err
		}
		if err = tx.Bucket(metaKey).Put(geometryKey, gv); err != nil {
			return errors.Wrap(err, "storing geometry")
		}
		b := tx.Bucket(blocksKey)
		stored := 0
		err = storage.ForEachBlock(image, self.blockSize, func(i int, data []byte) error {
			k := storage.BlockKey(i)
			if util.IsZero(data) {
				return b.Delete(k)
			}
			v, err := storage.EncodeBlock(self.codec, k, data)
			if err != nil {
				return err
			}
			stored++
			return b.Put(k, v)
		})
		if err != nil {
			return err
		}
		mlog.Printf2("storage/bolt/bolt", " %d non-zero blocks", stored)

		// Leftovers of an image with more blocks
		var stale [][]byte
		c := b.Cursor()
		n := len(image) / self.blockSize
		for k, _ := c.Seek(storage.BlockKey(n)); k != nil; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err = b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
