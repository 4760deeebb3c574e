/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:04:44 2017 mstenber
 * Last modified: Mon Mar 26 11:04:51 2018 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestConcatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ConcatBytes([]byte("foo"), []byte("bar")), []byte("foobar"))
}

func TestUint32Bytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Uint32Bytes(0x01020304), []byte{1, 2, 3, 4})
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(make([]byte, 10)))
	assert.False(t, IsZero([]byte{0, 0, 1}))
}

func TestCeilDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CeilDiv(0, 1024), int64(0))
	assert.Equal(t, CeilDiv(1, 1024), int64(1))
	assert.Equal(t, CeilDiv(1024, 1024), int64(1))
	assert.Equal(t, CeilDiv(1025, 1024), int64(2))
}

func TestIMin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, IMin(3, 7, 1, 5), 1)
	assert.Equal(t, IMin(3), 3)
}
