/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 13:22:05 2018 mstenber
 * Last modified: Mon Mar 26 14:03:31 2018 mstenber
 * Edit time:     24 min
 *
 */

package storage

import (
	"github.com/kimho912/file-system/codec"
	"github.com/kimho912/file-system/util"
	"github.com/pkg/errors"
	ucodec "github.com/ugorji/go/codec"
)

// Helpers shared by block-granular (key-value) backends. They store
// only blocks that are not all zero; missing block == zero block.

var cborHandle ucodec.CborHandle

func EncodeGeometry(g Geometry) (ret []byte, err error) {
	err = ucodec.NewEncoderBytes(&ret, &cborHandle).Encode(&g)
	return
}

func DecodeGeometry(b []byte) (g Geometry, err error) {
	err = ucodec.NewDecoderBytes(b, &cborHandle).Decode(&g)
	if err != nil {
		err = errors.Wrap(err, "decoding geometry")
	}
	return
}

// BlockKey is the key of block i; big-endian so that iteration order
// is block order.
func BlockKey(i int) []byte {
	return util.Uint32Bytes(uint32(i))
}

// EncodeBlock produces the stored value of block data.
func EncodeBlock(c codec.Codec, key, data []byte) ([]byte, error) {
	if c == nil {
		return data, nil
	}
	return c.EncodeBytes(data, key)
}

// DecodeBlock decodes stored value into dst, which must be exactly
// one block long.
func DecodeBlock(c codec.Codec, key, value, dst []byte) error {
	data := value
	if c != nil {
		var err error
		data, err = c.DecodeBytes(value, key)
		if err != nil {
			return errors.Wrapf(err, "decoding block %x", key)
		}
	}
	if len(data) != len(dst) {
		return errors.Wrapf(ErrImageSize, "block %x is %d bytes, not %d", key, len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// ForEachBlock calls cb with each block of image.
func ForEachBlock(image []byte, blockSize int, cb func(i int, data []byte) error) error {
	if blockSize <= 0 || len(image)%blockSize != 0 {
		return errors.Wrapf(ErrImageSize, "%d bytes is not whole %d byte blocks", len(image), blockSize)
	}
	for i := 0; i*blockSize < len(image); i++ {
		if err := cb(i, image[i*blockSize:(i+1)*blockSize]); err != nil {
			return err
		}
	}
	return nil
}

// ImageGeometry describes image of given size.
func ImageGeometry(image []byte, blockSize int) Geometry {
	return Geometry{BlockSize: blockSize, NumBlocks: len(image) / blockSize}
}

// Zero clears image.
func Zero(image []byte) {
	for i := range image {
		image[i] = 0
	}
}
