// Package execenv defines the execution environment contract tools are
// invoked against (read/write/list/exec/grep/glob) and ships one
// reference, non-containerized implementation. A production deployment
// is expected to plug in its own sandboxed/remote implementation behind
// the same Environment interface.
package execenv

import "context"

type DirEntry struct {
	Name  string
	IsDir bool
	Size  *int64 // nil on stat failure
}

type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	DurationMs int64
}

type GrepOptions struct {
	CaseInsensitive bool
	MaxResults      int
	GlobFilter      string
}

// EnvPolicy selects how exec_command's child process environment is
// derived from the parent's.
type EnvPolicy string

const (
	InheritAll  EnvPolicy = "inherit_all"
	InheritNone EnvPolicy = "inherit_none"
	InheritCore EnvPolicy = "inherit_core"
)

// Environment is the external interface the session and tools depend
// on. All relative paths resolve against WorkingDirectory().
type Environment interface {
	ReadFile(ctx context.Context, path string, offset, limit int) (string, error)
	WriteFile(ctx context.Context, path, content string) error
	FileExists(ctx context.Context, path string) bool
	ListDirectory(ctx context.Context, path string, depth int) ([]DirEntry, error)
	ExecCommand(ctx context.Context, cmd string, timeoutMs int, cwd string, envVars map[string]string) ExecResult
	Grep(ctx context.Context, pattern, path string, opts GrepOptions) (string, error)
	Glob(ctx context.Context, pattern, basePath string) ([]string, error)

	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context) error

	WorkingDirectory() string
	Platform() string
	OSVersion() string
}
