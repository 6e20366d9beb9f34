package testutil

import (
	"os"
	"sync"
	"testing"
)

const MaxFuzzBytes = 2048

var cwdMu sync.Mutex

func ClampBytes(data []byte, max int) []byte {
	if len(data) > max {
		return data[:max]
	}
	return data
}

func ClampString(data string, max int) string {
	if len(data) > max {
		return data[:max]
	}
	return data
}

// RunAppletInDir runs run with captured stdio from inside dir, restoring the
// working directory afterwards.
func RunAppletInDir(t *testing.T, run RunApplet, args []string, input string, dir string) (string, string, int) {
	t.Helper()
	cwdMu.Lock()
	defer cwdMu.Unlock()

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(oldDir) }()

	stdio, out, errBuf := CaptureStdio(input)
	code := run(stdio, args)
	return out.String(), errBuf.String(), code
}
