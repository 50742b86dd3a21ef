// Package gitcli runs the native git executable and turns its output into
// domain records.
//
// A logical git operation is described by a CommandInput, executed by an
// Executor that attaches OutputReceivers to the live stdout and stderr
// pipes, and parsed incrementally as bytes arrive. Accessor ties the pieces
// together behind the domain accessor interfaces.
package gitcli

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CommandInput is one git invocation: the command, its arguments, and the
// process context it runs in. It is immutable once constructed.
type CommandInput struct {
	command       string
	globalOptions []string
	args          []string
	workDir       string
	encoding      encoding.Encoding
	env           map[string]string
}

// InputOption configures a CommandInput.
type InputOption func(*CommandInput)

// WithArguments appends arguments after the command name.
func WithArguments(args ...string) InputOption {
	return func(in *CommandInput) {
		in.args = append(in.args, args...)
	}
}

// WithGlobalOptions appends options placed before the command name,
// e.g. "-c", "core.quotepath=false".
func WithGlobalOptions(opts ...string) InputOption {
	return func(in *CommandInput) {
		in.globalOptions = append(in.globalOptions, opts...)
	}
}

// WithWorkingDirectory sets the directory git runs in.
func WithWorkingDirectory(dir string) InputOption {
	return func(in *CommandInput) {
		in.workDir = dir
	}
}

// WithEncoding sets the encoding git output is decoded from.
func WithEncoding(enc encoding.Encoding) InputOption {
	return func(in *CommandInput) {
		in.encoding = enc
	}
}

// WithEnvironment adds environment variable overrides. Later calls win.
func WithEnvironment(env map[string]string) InputOption {
	return func(in *CommandInput) {
		if len(env) == 0 {
			return
		}
		if in.env == nil {
			in.env = make(map[string]string, len(env))
		}
		maps.Copy(in.env, env)
	}
}

// NewCommandInput builds the input for "git <command> ...".
func NewCommandInput(command string, opts ...InputOption) CommandInput {
	in := CommandInput{command: command}
	for _, opt := range opts {
		opt(&in)
	}
	return in
}

// Command returns the git subcommand name.
func (in CommandInput) Command() string { return in.command }

// Args returns a copy of the arguments following the command name.
func (in CommandInput) Args() []string { return append([]string(nil), in.args...) }

// WorkingDirectory returns the directory git runs in; empty means inherit.
func (in CommandInput) WorkingDirectory() string { return in.workDir }

// Encoding returns the output encoding, UTF-8 when none was set.
func (in CommandInput) Encoding() encoding.Encoding {
	if in.encoding == nil {
		return unicode.UTF8
	}
	return in.encoding
}

// Environment returns a copy of the environment overrides.
func (in CommandInput) Environment() map[string]string {
	if in.env == nil {
		return nil
	}
	return maps.Clone(in.env)
}

// Arguments returns the literal argument vector passed to the executable.
func (in CommandInput) Arguments() []string {
	argv := make([]string, 0, len(in.globalOptions)+1+len(in.args))
	argv = append(argv, in.globalOptions...)
	if in.command != "" {
		argv = append(argv, in.command)
	}
	return append(argv, in.args...)
}

// String renders the invocation for logs.
func (in CommandInput) String() string {
	return "git " + strings.Join(in.Arguments(), " ")
}

// ResolveEncoding looks up an encoding by its WHATWG label
// ("utf-8", "windows-1251", "shift_jis", ...). Empty means UTF-8.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodeStream wraps r so it yields UTF-8 text decoded from enc.
func decodeStream(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil || enc == unicode.UTF8 {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}
