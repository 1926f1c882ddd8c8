package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	appErrors "github.com/agentspine/spine/internal/errors"
)

// AppName is the canonical application name.
const AppName = "agentspine"

// HomeDir returns the agentspine configuration home: ~/.agentspine
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// Bootstrap ensures ~/.agentspine exists with its default directory tree
// and seed files. Safe to call on every startup — it only creates what's
// missing and never overwrites a file the user has already edited.
func Bootstrap(logger *zap.Logger) error {
	root := HomeDir()

	dirs := []string{
		root,
		filepath.Join(root, "prompts"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "logs", "pipeline"),
		filepath.Join(root, "pipelines"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return appErrors.NewConfigurationErrorWithCause(fmt.Sprintf("create dir %s", dir), err)
		}
	}

	defaults := map[string]string{
		filepath.Join(root, "config.yaml"):              defaultConfig,
		filepath.Join(root, "prompts", "default.md"): defaultSystemPrompt,
	}

	created := 0
	for path, content := range defaults {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Warn("failed to write default file", zap.String("path", path), zap.Error(err))
			continue
		}
		created++
	}

	if created > 0 {
		logger.Info("agentspine bootstrap complete", zap.String("home", root), zap.Int("files_created", created))
	} else {
		logger.Debug("agentspine home directory OK", zap.String("home", root))
	}
	return nil
}

const defaultConfig = `# agentspine configuration — auto-generated on first launch.
gateway:
  host: 0.0.0.0
  port: 8780
  mode: local

log:
  level: info
  format: console

database:
  type: sqlite
  dsn: agentspine.db

agent:
  default_provider: ""
  default_model: ""
  providers: []
  max_turns: 50
  max_tool_rounds_per_input: 25
  max_subagent_depth: 2
  context_window_size: 128000
  runtime:
    tool_timeout: 60s
    run_timeout: 10m
    sub_agent_timeout: 3m
    max_retries: 3
    retry_base_wait: 2s
  guardrails:
    context_warn_ratio: 0.8
    loop_detect_window: 6
    loop_detect_threshold: 3

pipeline:
  logs_root: ~/.agentspine/logs/pipeline
  default_max_retry: 2
  retry_base_wait: 2s
  max_parallel: 4
`

const defaultSystemPrompt = `You are an autonomous coding agent. Act first, explain briefly after.
Never fabricate libraries, APIs, or data. When uncertain, say so.
`
