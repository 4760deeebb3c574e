/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:12 2017 mstenber
 * Last modified: Mon Mar 26 12:31:40 2018 mstenber
 * Edit time:     83 min
 *
 */

// codec library is responsible for transforming block values (data +
// additionalData) before they hit a key-value storage backend, and
// back. In practise this means encrypting/decrypting.
//
// CodecChain makes it possible to combine multiple Codecs that do the
// particular sub-EncodeBytes/DecodeBytes steps.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	ucodec "github.com/ugorji/go/codec"
	"golang.org/x/crypto/pbkdf2"
)

// Codec
//
// Single transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

// EncryptedData is the envelope EncryptingCodec produces.
type EncryptedData struct {
	// Nonce used for AES GCM
	Nonce []byte `codec:"n"`

	// EncryptedData is the AES GCM sealed payload
	EncryptedData []byte `codec:"d"`
}

var msgpackHandle ucodec.MsgpackHandle

// EncryptingCodec
//
// AES GCM based encrypting/decrypting (+authenticating) Codec. The key
// is derived from password and salt with PBKDF2-SHA256.
type EncryptingCodec struct {
	gcm cipher.AEAD
	// Main key
	mk []byte
}

var _ Codec = &EncryptingCodec{}

func (self EncryptingCodec) Init(password, salt []byte, iter int) (*EncryptingCodec, error) {
	self.mk = pbkdf2.Key(password, salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(self.mk)
	if err != nil {
		return nil, errors.Wrap(err, "aes.NewCipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "cipher.NewGCM")
	}
	self.gcm = gcm
	return &self, nil
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed EncryptedData
	err = ucodec.NewDecoderBytes(data, &msgpackHandle).Decode(&ed)
	if err != nil {
		err = errors.Wrap(err, "decoding envelope")
		return
	}
	if len(ed.Nonce) != self.gcm.NonceSize() {
		err = errors.Errorf("invalid nonce length %d", len(ed.Nonce))
		return
	}
	ret, err = self.gcm.Open(nil, ed.Nonce, ed.EncryptedData, additionalData)
	if err != nil {
		err = errors.Wrap(err, "gcm.Open")
	}
	return
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ciphertext := self.gcm.Seal(nil, nonce, data, additionalData)
	ed := EncryptedData{Nonce: nonce, EncryptedData: ciphertext}
	err = ucodec.NewEncoderBytes(&ret, &msgpackHandle).Encode(&ed)
	return
}

// CodecChain applies codecs in order; empty chain is a nop.
type CodecChain struct {
	codecs, reverseCodecs []Codec
}

var _ Codec = &CodecChain{}

// Init method initializes the codec chain.
//
// codecs are given in decoding order.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	rc := make([]Codec, len(codecs))
	for i, c := range codecs {
		rc[len(codecs)-i-1] = c
	}
	self.reverseCodecs = rc
	return &self
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(data, additionalData)
		if err != nil {
			return
		}
		data = ret
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(data, additionalData)
		if err != nil {
			return
		}
		data = ret
	}
	return
}
