package transport

import "encoding/binary"

// DefaultMaxFrameSize is the cap spec.md §4.5/§6 calls for: 16 MiB.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// Framed prepends a 4-byte big-endian length prefix on Flush: writes
// accumulate in an internal buffer; Flush emits `[len][payload]`.
// Reads first consume the length prefix, then expose exactly that
// many bytes, per spec.md §4.5/§6.
type Framed struct {
	inner       Transport
	maxFrame    int
	writeBuf    []byte
	readBuf     []byte
	readPos     int
}

// NewFramed wraps inner with the default 16 MiB frame cap.
func NewFramed(inner Transport) *Framed {
	return NewFramedMax(inner, DefaultMaxFrameSize)
}

// NewFramedMax wraps inner with an explicit maximum frame size.
func NewFramedMax(inner Transport, maxFrame int) *Framed {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Framed{inner: inner, maxFrame: maxFrame}
}

func (f *Framed) Read(p []byte) error {
	n := 0
	for n < len(p) {
		if f.readPos >= len(f.readBuf) {
			if err := f.readFrame(); err != nil {
				return err
			}
		}
		c := copy(p[n:], f.readBuf[f.readPos:])
		f.readPos += c
		n += c
	}
	return nil
}

func (f *Framed) readFrame() error {
	var lenBuf [4]byte
	if err := f.inner.Read(lenBuf[:]); err != nil {
		if te, ok := err.(*Error); ok && te.Kind == Eof {
			return newError(FrameTruncated, "short read of frame length prefix")
		}
		return err
	}
	size := int(binary.BigEndian.Uint32(lenBuf[:]))
	if size < 0 || size > f.maxFrame {
		return newError(FrameTooLarge, "frame size exceeds configured maximum")
	}
	buf := make([]byte, size)
	if size > 0 {
		if err := f.inner.Read(buf); err != nil {
			if te, ok := err.(*Error); ok && te.Kind == Eof {
				return newError(FrameTruncated, "short read of frame payload")
			}
			return err
		}
	}
	f.readBuf = buf
	f.readPos = 0
	return nil
}

func (f *Framed) Write(p []byte) error {
	f.writeBuf = append(f.writeBuf, p...)
	return nil
}

func (f *Framed) Flush() error {
	if len(f.writeBuf) == 0 {
		return f.inner.Flush()
	}
	if len(f.writeBuf) > f.maxFrame {
		return newError(FrameTooLarge, "frame size exceeds configured maximum")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.writeBuf)))
	if err := f.inner.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(f.writeBuf) > 0 {
		if err := f.inner.Write(f.writeBuf); err != nil {
			return err
		}
	}
	f.writeBuf = f.writeBuf[:0]
	return f.inner.Flush()
}

func (f *Framed) Close() error {
	return f.inner.Close()
}

func (f *Framed) IsOpen() bool { return f.inner.IsOpen() }
