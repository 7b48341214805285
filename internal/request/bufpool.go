package request

import "sync"

// Header buffers start at initialBufferSize and are recycled between
// requests. Buffers that grew past it are left to the GC.
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, initialBufferSize)
		return &buf
	},
}

func getBuffer() []byte {
	buf := bufferPool.Get().(*[]byte)
	return (*buf)[:0]
}

func putBuffer(buf []byte) {
	if cap(buf) != initialBufferSize {
		return
	}
	buf = buf[:0]
	bufferPool.Put(&buf)
}

// grow returns b with capacity for at least n bytes, keeping its contents.
func grow(b []byte, n int) []byte {
	if n <= cap(b) {
		return b
	}
	nb := make([]byte, len(b), n)
	copy(nb, b)
	return nb
}
