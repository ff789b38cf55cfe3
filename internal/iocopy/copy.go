// Package iocopy provides pooled copy buffers shared by file transfers.
package iocopy

import (
	"io"
	"sync"
)

// BufSize is the size of buffers handed out by GetBuffer.
const BufSize = 65536

//nolint:gochecknoglobals
var bufferPool = sync.Pool{
	New: func() any {
		p := make([]byte, BufSize)

		return &p
	},
}

// GetBuffer returns a pooled buffer of BufSize bytes. It must be returned with ReleaseBuffer.
func GetBuffer() []byte {
	//nolint:forcetypeassert
	return *bufferPool.Get().(*[]byte)
}

// ReleaseBuffer returns a buffer obtained from GetBuffer back to the pool.
func ReleaseBuffer(b []byte) {
	if cap(b) < BufSize {
		return
	}

	b = b[:BufSize]
	bufferPool.Put(&b)
}

// Copy is equivalent to io.Copy() but uses a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := GetBuffer()
	defer ReleaseBuffer(buf)

	//nolint:wrapcheck
	return io.CopyBuffer(dst, src, buf)
}
