package launcher

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rcarmo/go-jobsh/pkg/core"
)

// copyGrace bounds how long releasing a job waits for its output to drain.
// A grandchild that inherited the pipe can keep it open indefinitely.
const copyGrace = 2 * time.Second

// childFiles holds the three descriptors handed to a child. Streams that are
// not *os.File (captured buffers in tests, for instance) are bridged through
// pipes whose read ends are copied into the shell's writers.
type childFiles struct {
	std     [3]*os.File
	owned   []*os.File // child-side ends opened here, closed after fork
	readers []*os.File
	sinks   []io.Writer
	wg      sync.WaitGroup
}

func openChildFiles(stdio *core.Stdio) (*childFiles, error) {
	c := &childFiles{}
	if f, ok := stdio.In.(*os.File); ok {
		c.std[0] = f
	} else {
		// The shell reads its own commands from In; a child must not consume them.
		null, err := os.Open(os.DevNull)
		if err != nil {
			return nil, err
		}
		c.std[0] = null
		c.owned = append(c.owned, null)
	}
	for i, w := range []io.Writer{stdio.Out, stdio.Err} {
		if f, ok := w.(*os.File); ok {
			c.std[i+1] = f
			continue
		}
		r, pw, err := os.Pipe()
		if err != nil {
			c.abort()
			return nil, err
		}
		c.std[i+1] = pw
		c.owned = append(c.owned, pw)
		c.readers = append(c.readers, r)
		c.sinks = append(c.sinks, w)
	}
	return c, nil
}

func (c *childFiles) fds() []uintptr {
	return []uintptr{c.std[0].Fd(), c.std[1].Fd(), c.std[2].Fd()}
}

// started closes the child-side ends held by the parent and begins copying.
func (c *childFiles) started() {
	for _, f := range c.owned {
		_ = f.Close()
	}
	c.owned = nil
	for i, r := range c.readers {
		c.wg.Add(1)
		go func(r *os.File, w io.Writer) {
			defer c.wg.Done()
			_, _ = io.Copy(w, r)
		}(r, c.sinks[i])
	}
}

// abort closes everything after a failed spawn.
func (c *childFiles) abort() {
	for _, f := range c.owned {
		_ = f.Close()
	}
	for _, r := range c.readers {
		_ = r.Close()
	}
	c.owned, c.readers = nil, nil
}

// release waits for pending output, then closes the read ends. It runs when
// the job leaves the registry, on the command loop's goroutine, so a
// grandchild that keeps the pipe open stalls the loop for at most copyGrace.
// Jobs writing to *os.File streams have no readers and return at once.
func (c *childFiles) release() {
	if len(c.readers) == 0 {
		return
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(copyGrace):
	}
	for _, r := range c.readers {
		_ = r.Close()
	}
	c.wg.Wait()
	c.readers = nil
}
