// Package procutil provides signal name helpers for the shell.
package procutil

import (
	"strconv"
	"strings"
	"syscall"
)

// ParseSignal parses a signal given by number ("15", "-9") or by name with or
// without the SIG prefix ("TERM", "-SIGKILL", "hup").
func ParseSignal(arg string) (syscall.Signal, error) {
	arg = strings.TrimPrefix(arg, "-")
	if arg == "" {
		return 0, syscall.EINVAL
	}
	if num, err := strconv.Atoi(arg); err == nil {
		if num < 0 || num > 64 {
			return 0, syscall.EINVAL
		}
		return syscall.Signal(num), nil
	}
	arg = strings.TrimPrefix(strings.ToUpper(arg), "SIG")
	for sig, name := range signalNames() {
		if name == arg {
			return sig, nil
		}
	}
	return 0, syscall.EINVAL
}

// SignalName returns the short name of sig ("TERM"), or its number when the
// signal has no entry in the table.
func SignalName(sig syscall.Signal) string {
	if name, ok := signalNames()[sig]; ok {
		return name
	}
	return strconv.Itoa(int(sig))
}
