package jsh

import (
	"bufio"
	"io"
)

type readResult struct {
	text string
	err  error
}

// lineReader reads one line per request on its own goroutine, so the loop can
// keep reaping while it waits and nothing reads the terminal while a job
// owns it.
type lineReader struct {
	req chan struct{}
	out chan readResult
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		req: make(chan struct{}),
		out: make(chan readResult, 1),
	}
	go lr.loop(bufio.NewReader(r))
	return lr
}

func (lr *lineReader) loop(br *bufio.Reader) {
	for range lr.req {
		text, err := br.ReadString('\n')
		lr.out <- readResult{text: text, err: err}
		if err != nil {
			return
		}
	}
}

func (lr *lineReader) request() {
	lr.req <- struct{}{}
}

// close stops the goroutine once it is idle.
func (lr *lineReader) close() {
	close(lr.req)
}
