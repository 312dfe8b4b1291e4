package log

import "io"

// MultiWriter fans log output out to every added writer. A failing writer
// does not stop the others.
type MultiWriter struct {
	writers []io.Writer
}

func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil && err == nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

// Close closes the writers that can be closed, skipping the process's
// standard streams.
func (m *MultiWriter) Close() error {
	var err error
	for _, w := range m.writers {
		c, ok := w.(io.Closer)
		if !ok || isStdStream(w) {
			continue
		}
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}
