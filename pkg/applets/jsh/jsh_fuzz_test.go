package jsh_test

import (
	"strings"
	"testing"

	"github.com/rcarmo/go-jobsh/pkg/applets/jsh"
	"github.com/rcarmo/go-jobsh/pkg/testutil"
)

// FuzzJobReferences feeds arbitrary arguments to the job-control builtins of
// a shell with no jobs. Every such command must be a silent no-op.
func FuzzJobReferences(f *testing.F) {
	f.Add(uint8(0), []byte("%1"))
	f.Add(uint8(1), []byte("%0"))
	f.Add(uint8(2), []byte("%-5 extra"))
	f.Add(uint8(3), []byte(""))
	f.Add(uint8(1), []byte("%99999999999999999999"))
	f.Add(uint8(0), []byte("% 1 &"))
	if testing.Short() {
		f.Skip("fuzzing skipped in short mode")
	}
	names := []string{"fg", "bg", "kill", "jobs"}
	dir := f.TempDir()
	f.Fuzz(func(t *testing.T, which uint8, data []byte) {
		arg := string(testutil.ClampBytes(data, testutil.MaxFuzzBytes))
		arg = strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, arg)
		arg = testutil.ClampString(arg, 200)
		line := names[int(which)%len(names)] + " " + arg + "\n"

		out, _, code := testutil.RunAppletInDir(t, jsh.Run, nil, line, dir)
		if code != 0 {
			t.Fatalf("exit code %d for %q", code, line)
		}
		if out != "" {
			t.Fatalf("unexpected output %q for %q", out, line)
		}
	})
}
