/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Mon Mar 26 15:48:20 2018 mstenber
 * Edit time:     188 min
 *
 */

package badger

import (
	"encoding/binary"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/kimho912/file-system/codec"
	"github.com/kimho912/file-system/mlog"
	"github.com/kimho912/file-system/storage"
	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
)

// Blocks written per transaction; keeps us well below badger's
// transaction size limit.
const batchSize = 256

var metaPrefix = []byte("1")
var blockPrefix = []byte("2")
var geometryKey = util.ConcatBytes(metaPrefix, []byte("geometry"))

// badgerBackend provides on-disk storage in a badger directory.
//
// - key prefix 1 + "geometry" -> cbor encoded storage.Geometry
// - key prefix 2 + big-endian block index -> (codec encoded) block
//
// All-zero blocks are not stored.
type badgerBackend struct {
	db        *badger.DB
	codec     codec.Codec
	blockSize int
}

var _ storage.Backend = &badgerBackend{}

func NewBadgerBackend() storage.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config storage.BackendConfiguration) error {
	mlog.Printf2("storage/badger/badger", "bad.Init %v", config.Path)
	if config.BlockSize <= 0 {
		return errors.Errorf("invalid block size %d", config.BlockSize)
	}
	dir := config.Path
	if config.Create {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errors.Wrap(err, "os.MkdirAll")
		}
	} else {
		_, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return errors.Wrapf(storage.ErrNotFound, "%s", dir)
		}
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrap(err, "badger.Open")
	}
	self.db = db
	self.codec = config.Codec
	self.blockSize = config.BlockSize
	return nil
}

func (self *badgerBackend) Close() error {
	mlog.Printf2("storage/badger/badger", "bad.Close")
	return self.db.Close()
}

func blockIndex(k []byte) (int, error) {
	if len(k) != len(blockPrefix)+4 {
		return 0, errors.Errorf("invalid block key %x", k)
	}
	return int(binary.BigEndian.Uint32(k[len(blockPrefix):])), nil
}

func (self *badgerBackend) Load(image []byte) error {
	mlog.Printf2("storage/badger/badger", "bad.Load %d b", len(image))
	return self.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(geometryKey)
		if err == badger.ErrKeyNotFound {
			return errors.Wrap(storage.ErrNotFound, "no image saved")
		}
		if err != nil {
			return errors.Wrap(err, "txn.Get")
		}
		gv, err := item.ValueCopy(nil)
		if err != nil {
			return errors.Wrap(err, "item.ValueCopy")
		}
		g, err := storage.DecodeGeometry(gv)
		if err != nil {
			return err
		}
		if err = g.Check(self.blockSize, len(image)); err != nil {
			return err
		}
		storage.Zero(image)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(blockPrefix); it.ValidForPrefix(blockPrefix); it.Next() {
			item := it.Item()
			k := item.Key()
			i, err := blockIndex(k)
			if err != nil {
				return err
			}
			if i >= g.NumBlocks {
				return errors.Errorf("block %d out of range", i)
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return errors.Wrap(err, "item.ValueCopy")
			}
			dst := image[i*self.blockSize : (i+1)*self.blockSize]
			if err = storage.DecodeBlock(self.codec, k[len(blockPrefix):], v, dst); err != nil {
				return err
			}
		}
		return nil
	})
}

type badgerOp struct {
	key, value []byte // value nil == delete
}

func (self *badgerBackend) apply(ops []badgerOp) error {
	return self.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			if op.value == nil {
				err = txn.Delete(op.key)
			} else {
				err = txn.Set(op.key, op.value)
			}
			if err != nil {
				return errors.Wrapf(err, "updating %x", op.key)
			}
		}
		return nil
	})
}

func (self *badgerBackend) Save(image []byte) error {
	mlog.Printf2("storage/badger/badger", "bad.Save %d b", len(image))
	ops := make([]badgerOp, 0, batchSize)
	flush := func() error {
		if len(ops) == 0 {
			return nil
		}
		err := self.apply(ops)
		ops = ops[:0]
		return err
	}
	err := storage.ForEachBlock(image, self.blockSize, func(i int, data []byte) error {
		bk := storage.BlockKey(i)
		op := badgerOp{key: util.ConcatBytes(blockPrefix, bk)}
		if !util.IsZero(data) {
			v, err := storage.EncodeBlock(self.codec, bk, data)
			if err != nil {
				return err
			}
			// badger keeps the slice until commit
			op.value = append([]byte(nil), v...)
		}
		ops = append(ops, op)
		if len(ops) == batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Leftovers of an image with more blocks
	n := len(image) / self.blockSize
	err = self.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		start := util.ConcatBytes(blockPrefix, storage.BlockKey(n))
		for it.Seek(start); it.ValidForPrefix(blockPrefix); it.Next() {
			k := append([]byte(nil), it.Item().Key()...)
			ops = append(ops, badgerOp{key: k})
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scanning stale blocks")
	}

	gv, err := storage.EncodeGeometry(storage.ImageGeometry(image, self.blockSize))
	if err != nil {
		return err
	}
	ops = append(ops, badgerOp{key: geometryKey, value: gv})
	return flush()
}
