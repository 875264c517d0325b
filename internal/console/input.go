package console

import (
	"bufio"
	"io"
)

type line struct {
	text string
	err  error
}

// lineReader reads a line from the input only when one is asked for, so
// that nothing else (such as a password prompt) competes for the input
// while no read is pending.
type lineReader struct {
	requests chan struct{}
	lines    chan line
	pending  bool
}

func newLineReader(in io.Reader) *lineReader {
	r := &lineReader{requests: make(chan struct{}), lines: make(chan line)}
	go func() {
		scanner := bufio.NewScanner(in)
		for range r.requests {
			if scanner.Scan() {
				r.lines <- line{text: scanner.Text()}
				continue
			}
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			r.lines <- line{err: err}
		}
	}()
	return r
}

// next asks for a line unless a request is already outstanding. The caller
// must call received after taking a value from the channel.
func (r *lineReader) next() <-chan line {
	if !r.pending {
		r.requests <- struct{}{}
		r.pending = true
	}
	return r.lines
}

func (r *lineReader) received() { r.pending = false }
