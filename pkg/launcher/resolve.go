package launcher

import "strings"

// DefaultDirs are probed, in order, after the working directory.
var DefaultDirs = []string{"/usr/bin", "/bin"}

// ResolveError reports that no executable was found for Name. Its message is
// the exact line shown to the user.
type ResolveError struct {
	Name     string
	Explicit bool // Name was a path (leading '/' or '.')
}

func (e *ResolveError) Error() string {
	if e.Explicit {
		return e.Name + ": No such file or directory"
	}
	return e.Name + ": command not found"
}

// IsPath reports whether name is used as a path rather than searched for.
func IsPath(name string) bool {
	return strings.HasPrefix(name, "/") || strings.HasPrefix(name, ".")
}

// Resolve maps a typed command name to an executable path.
//
// A name starting with '/' or '.' is checked as given. Any other name is
// probed as cwd/name and then dir/name for each of dirs; the first
// executable candidate wins. Resolve has no side effects beyond calling
// executable.
func Resolve(name, cwd string, dirs []string, executable func(string) bool) (string, error) {
	if name == "" {
		return "", &ResolveError{Name: name}
	}
	if IsPath(name) {
		if executable(name) {
			return name, nil
		}
		return "", &ResolveError{Name: name, Explicit: true}
	}
	for _, c := range candidates(name, cwd, dirs) {
		if executable(c) {
			return c, nil
		}
	}
	return "", &ResolveError{Name: name}
}

func candidates(name, cwd string, dirs []string) []string {
	out := make([]string, 0, len(dirs)+1)
	if cwd != "" {
		out = append(out, join(cwd, name))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		out = append(out, join(dir, name))
	}
	return out
}

func join(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + name
}
