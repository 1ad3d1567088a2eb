// Package failure classifies the errors a site build can produce and maps
// them to process exit codes.
package failure

import (
	"errors"
	"fmt"
)

// ParseError reports a content file whose front matter could not be read.
// By default the file is left out of the build; strict builds abort.
type ParseError struct {
	Path string // source path, relative to the content root
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RenderError reports a missing template or a template that failed to execute.
// It is always fatal.
type RenderError struct {
	Path     string // output or source path being rendered, if known
	Template string // template name, if known
	Err      error
}

func (e *RenderError) Error() string {
	switch {
	case e.Path != "" && e.Template != "":
		return fmt.Sprintf("%s: template %q: %s", e.Path, e.Template, e.Err)
	case e.Template != "":
		return fmt.Sprintf("template %q: %s", e.Template, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error { return e.Err }

// IOError reports a source that cannot be read or an output that cannot be
// written. It is always fatal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UsageError reports bad command-line input or configuration.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Exit codes.
const (
	ExitOK    = 0
	ExitBuild = 1
	ExitUsage = 2
)

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	return ExitBuild
}
