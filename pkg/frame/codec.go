// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
)

// Encoder is a Writer that serializes frames to a byte stream, each frame
// prefixed by its length as a big endian uint32. With compression the
// whole stream is an lz4 frame stream.
type Encoder struct {
	w      io.Writer
	lw     *lz4.Writer
	frames int
	lenBuf [4]byte
}

func NewEncoder(w io.Writer, compress bool) *Encoder {
	e := &Encoder{w: w}
	if compress {
		e.lw = lz4.NewWriter(w)
		e.w = e.lw
	}
	return e
}

func (e *Encoder) Open() error { return nil }

func (e *Encoder) NextFrame(buf []byte) error {
	binary.BigEndian.PutUint32(e.lenBuf[:], uint32(len(buf)))
	if _, err := e.w.Write(e.lenBuf[:]); err != nil {
		return err
	}
	if _, err := e.w.Write(buf); err != nil {
		return err
	}
	e.frames++
	return nil
}

func (e *Encoder) Fail() error { return nil }

func (e *Encoder) Close() error {
	if e.lw != nil {
		return e.lw.Close()
	}
	return nil
}

// Frames is the number of frames written so far.
func (e *Encoder) Frames() int { return e.frames }

// Decoder reads a stream produced by Encoder.
type Decoder struct {
	r   io.Reader
	buf []byte
}

func NewDecoder(r io.Reader, compress bool) *Decoder {
	if compress {
		r = lz4.NewReader(r)
	}
	return &Decoder{r: r}
}

// Next returns the next frame, or io.EOF at the end of the stream. The
// returned buffer is reused by the following call.
func (d *Decoder) Next() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(lenBuf[:]))
	if n < HeaderSize+CountSize {
		return nil, moerr.NewInvalidInput(moerr.Context(), "frame of %d bytes", n)
	}
	if cap(d.buf) < n {
		d.buf = make([]byte, n)
	}
	d.buf = d.buf[:n]
	if _, err := io.ReadFull(d.r, d.buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	return d.buf, nil
}

// Run pushes every frame of the stream into w and closes it. w is failed
// before it is closed when the stream or w reports an error.
func (d *Decoder) Run(w Writer) (err error) {
	if err = w.Open(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = w.Fail()
		}
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	var buf []byte
	for {
		buf, err = d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = w.NextFrame(buf); err != nil {
			return err
		}
	}
}
