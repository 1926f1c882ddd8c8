package execenv

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const defaultReadLimit = 2000

// LocalConfig configures LocalEnvironment.
type LocalConfig struct {
	WorkingDir         string
	DefaultTimeoutMs   int
	MaxTimeoutMs       int
	EnvPolicy          EnvPolicy
}

func DefaultLocalConfig(workingDir string) LocalConfig {
	return LocalConfig{
		WorkingDir:       workingDir,
		DefaultTimeoutMs: 30_000,
		MaxTimeoutMs:     120_000,
		EnvPolicy:        InheritCore,
	}
}

// LocalEnvironment is a non-containerized reference Environment: it
// shells out on the host, scoped to a working directory.
type LocalEnvironment struct {
	cfg LocalConfig
	mu  sync.Mutex
}

func NewLocalEnvironment(cfg LocalConfig) *LocalEnvironment {
	return &LocalEnvironment{cfg: cfg}
}

func (e *LocalEnvironment) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.cfg.WorkingDir, path)
}

func (e *LocalEnvironment) Initialize(ctx context.Context) error {
	info, err := os.Stat(e.cfg.WorkingDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("working directory does not exist: %s", e.cfg.WorkingDir)
	}
	return nil
}

func (e *LocalEnvironment) Cleanup(ctx context.Context) error {
	return nil
}

func (e *LocalEnvironment) WorkingDirectory() string { return e.cfg.WorkingDir }
func (e *LocalEnvironment) Platform() string         { return runtime.GOOS }
func (e *LocalEnvironment) OSVersion() string         { return runtime.GOOS + "/" + runtime.GOARCH }

func (e *LocalEnvironment) ReadFile(ctx context.Context, path string, offset, limit int) (string, error) {
	full := e.resolve(path)
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	if offset <= 0 && limit <= 0 {
		return string(data), nil
	}
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if offset <= 0 {
		offset = 1
	}
	lines := strings.Split(string(data), "\n")
	start := offset - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n"), nil
}

func (e *LocalEnvironment) WriteFile(ctx context.Context, path, content string) error {
	full := e.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write_file: %w", err)
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

func (e *LocalEnvironment) FileExists(ctx context.Context, path string) bool {
	_, err := os.Stat(e.resolve(path))
	return err == nil
}

func (e *LocalEnvironment) ListDirectory(ctx context.Context, path string, depth int) ([]DirEntry, error) {
	if depth < 0 {
		return []DirEntry{}, nil
	}
	full := e.resolve(path)
	return e.listDirectoryRecursive(full, "", depth)
}

func (e *LocalEnvironment) listDirectoryRecursive(dir, prefix string, depth int) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list_directory: %w", err)
	}
	var out []DirEntry
	for _, ent := range entries {
		name := prefix + ent.Name()
		var size *int64
		if info, err := ent.Info(); err == nil && !ent.IsDir() {
			s := info.Size()
			size = &s
		} else if err != nil && !ent.IsDir() {
			size = nil
		}
		out = append(out, DirEntry{Name: name, IsDir: ent.IsDir(), Size: size})
		if ent.IsDir() && depth > 1 {
			children, err := e.listDirectoryRecursive(filepath.Join(dir, ent.Name()), name+"/", depth-1)
			if err == nil {
				out = append(out, children...)
			}
		}
	}
	return out, nil
}

type execState struct {
	mu       sync.Mutex
	resolved bool
	result   ExecResult
}

func (s *execState) resolve(r ExecResult) ExecResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.result
	}
	s.resolved = true
	s.result = r
	return r
}

// ExecCommand runs cmd via a shell, in its own process group so a
// timeout can terminate the whole tree. It never returns an error — all
// failure modes are reflected in the returned ExecResult.
func (e *LocalEnvironment) ExecCommand(ctx context.Context, cmdline string, timeoutMs int, cwd string, envVars map[string]string) ExecResult {
	if timeoutMs <= 0 {
		timeoutMs = e.cfg.DefaultTimeoutMs
	}
	if timeoutMs > e.cfg.MaxTimeoutMs {
		timeoutMs = e.cfg.MaxTimeoutMs
	}

	workDir := e.cfg.WorkingDir
	if cwd != "" {
		workDir = e.resolve(cwd)
	}

	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Dir = workDir
	cmd.Env = buildEnvironment(e.cfg.EnvPolicy, envVars)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExecResult{Stderr: err.Error(), ExitCode: -1, DurationMs: time.Since(start).Milliseconds()}
	}

	state := &execState{}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case err := <-done:
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		return state.resolve(ExecResult{
			Stdout: stdout.String(), Stderr: stderr.String(),
			ExitCode: exitCode, DurationMs: time.Since(start).Milliseconds(),
		})
	case <-timer.C:
		pgid, pgErr := syscall.Getpgid(cmd.Process.Pid)
		if pgErr == nil {
			_ = syscall.Kill(-pgid, syscall.SIGTERM)
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			if pgErr == nil {
				_ = syscall.Kill(-pgid, syscall.SIGKILL)
			}
			<-done
		}
		return state.resolve(ExecResult{
			Stdout: stdout.String(), Stderr: stderr.String(),
			ExitCode: -1, TimedOut: true, DurationMs: time.Since(start).Milliseconds(),
		})
	}
}

var grepLineTooLong = 4096

func (e *LocalEnvironment) Grep(ctx context.Context, pattern, path string, opts GrepOptions) (string, error) {
	flags := ""
	if opts.CaseInsensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return "", fmt.Errorf("grep: invalid pattern: %w", err)
	}

	root := e.resolve(path)
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 200
	}

	var out []string
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if opts.GlobFilter != "" {
			if ok, _ := filepath.Match(opts.GlobFilter, filepath.Base(p)); !ok {
				return nil
			}
		}
		f, err := os.Open(p)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, grepLineTooLong), grepLineTooLong)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				out = append(out, fmt.Sprintf("%s:%d:%s", p, lineNo, line))
				if len(out) >= maxResults {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return "", fmt.Errorf("grep: %w", walkErr)
	}
	if len(out) == 0 {
		return "No matches found.", nil
	}
	return strings.Join(out, "\n"), nil
}

func (e *LocalEnvironment) Glob(ctx context.Context, pattern, basePath string) ([]string, error) {
	base := e.cfg.WorkingDir
	if basePath != "" {
		base = e.resolve(basePath)
	}
	matches, err := filepath.Glob(filepath.Join(base, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}

	type stamped struct {
		path string
		mod  time.Time
	}
	stampedMatches := make([]stamped, 0, len(matches))
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			abs = m
		}
		info, err := os.Stat(m)
		mod := time.Time{}
		if err == nil {
			mod = info.ModTime()
		}
		stampedMatches = append(stampedMatches, stamped{path: abs, mod: mod})
	}
	sort.Slice(stampedMatches, func(i, j int) bool {
		return stampedMatches[i].mod.After(stampedMatches[j].mod)
	})

	out := make([]string, len(stampedMatches))
	for i, s := range stampedMatches {
		out[i] = s.path
	}
	return out, nil
}
