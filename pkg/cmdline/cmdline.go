// Package cmdline turns one input line into a Command.
//
// Tokens are runs of non-blank characters. An '&' anywhere on the line ends
// the command and marks it for the background; the rest of the line is
// discarded. There is no quoting, globbing, piping or redirection.
package cmdline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcarmo/go-jobsh/pkg/jobs"
)

const (
	DefaultMaxArgs   = 64
	DefaultMaxArgLen = 255
)

var (
	ErrTooManyArgs = errors.New("too many arguments")
	ErrArgTooLong  = errors.New("argument too long")
)

// Limits bounds the token count and the length of each token.
type Limits struct {
	MaxArgs   int
	MaxArgLen int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxArgs: DefaultMaxArgs, MaxArgLen: DefaultMaxArgLen}
}

// Command is a parsed input line.
type Command struct {
	Args      []string
	Placement jobs.Placement
}

// Empty reports whether the line held no tokens.
func (c Command) Empty() bool {
	return len(c.Args) == 0
}

// Name returns the first token, or "" for an empty command.
func (c Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Parse splits line into a Command. A line that exceeds lim yields an error
// and an empty Command.
func Parse(line string, lim Limits) (Command, error) {
	cmd := Command{Placement: jobs.Foreground}
	if i := strings.IndexByte(line, '&'); i >= 0 {
		line = line[:i]
		cmd.Placement = jobs.Background
	}
	line = strings.TrimRight(line, "\r\n")

	fields := strings.FieldsFunc(line, isBlank)
	if lim.MaxArgs > 0 && len(fields) > lim.MaxArgs {
		return Command{Placement: cmd.Placement}, fmt.Errorf("%w (max %d)", ErrTooManyArgs, lim.MaxArgs)
	}
	for _, f := range fields {
		if lim.MaxArgLen > 0 && len(f) > lim.MaxArgLen {
			return Command{Placement: cmd.Placement}, fmt.Errorf("%w (max %d)", ErrArgTooLong, lim.MaxArgLen)
		}
	}
	if len(fields) > 0 {
		cmd.Args = fields
	}
	return cmd, nil
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}
