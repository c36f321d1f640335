// Copyright 2022 Matrix Origin
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

// AppenderWrapper couples an appender with the writer its frames go to, so
// operators only deal with tuples.
type AppenderWrapper struct {
	appender *TupleAppender
	writer   Writer
}

func NewAppenderWrapper(appender *TupleAppender, writer Writer) *AppenderWrapper {
	return &AppenderWrapper{appender: appender, writer: writer}
}

func (w *AppenderWrapper) Open() error {
	return w.writer.Open()
}

func (w *AppenderWrapper) Append(fieldEndOffsets []int, data []byte) error {
	return AppendToWriter(w.writer, w.appender, fieldEndOffsets, data)
}

func (w *AppenderWrapper) AppendBuilder(tb *TupleBuilder) error {
	return w.Append(tb.FieldEndOffsets(), tb.ByteArray())
}

func (w *AppenderWrapper) AppendTuple(acc *TupleAccessor, tIdx int) error {
	ok, err := w.appender.AppendTuple(acc, tIdx)
	if err != nil || ok {
		return err
	}
	if err = w.appender.Flush(w.writer); err != nil {
		return err
	}
	_, err = w.appender.AppendTuple(acc, tIdx)
	return err
}

// Write pushes the pending frame downstream without emptying it.
func (w *AppenderWrapper) Write() error {
	return w.appender.Write(w.writer, false)
}

func (w *AppenderWrapper) Flush() error {
	return w.appender.Flush(w.writer)
}

func (w *AppenderWrapper) Fail() error {
	return w.writer.Fail()
}

func (w *AppenderWrapper) Close() error {
	return w.writer.Close()
}

func (w *AppenderWrapper) Appender() *TupleAppender { return w.appender }

func (w *AppenderWrapper) Writer() Writer { return w.writer }
