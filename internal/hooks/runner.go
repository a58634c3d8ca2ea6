package hooks

import (
	"context"
	"sync"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// Runner is a wizard observer that starts the configured hooks when the
// wizard reaches Finished or Error. Hooks run in their own goroutine.
type Runner struct {
	ctx     context.Context
	cfg     *Config
	workDir string

	// Dir maps a project folder name to where its files were placed.
	Dir func(folder string) string
	// Output receives each hook's output once it completes.
	Output func(hook, output string)

	wg sync.WaitGroup
}

// NewRunner creates a runner for cfg. A nil cfg runs nothing.
func NewRunner(ctx context.Context, cfg *Config, workDir string) *Runner {
	return &Runner{ctx: ctx, cfg: cfg, workDir: workDir}
}

// Notify implements setup.Observer.
func (r *Runner) Notify(n setup.Notification) {
	msg, ok := n.(setup.PageChangedMsg)
	if !ok || r.cfg == nil {
		return
	}
	switch msg.Page {
	case setup.PageFinished:
		r.launch("on_finished", r.cfg.Hooks.OnFinished, msg)
	case setup.PageError:
		r.launch("on_failed", r.cfg.Hooks.OnFailed, msg)
	}
}

func (r *Runner) launch(name string, hook *HookConfig, msg setup.PageChangedMsg) {
	if hook == nil || hook.Command == "" {
		return
	}
	vars := Variables{
		Folder:   msg.Context.Folder,
		URL:      msg.Context.URL,
		Warnings: append([]string(nil), msg.Warnings...),
	}
	if r.Dir != nil && vars.Folder != "" {
		vars.Dir = r.Dir(vars.Folder)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		out, err := Execute(r.ctx, hook, r.workDir, vars)
		if err != nil {
			logger.Warn("%s hook cancelled: %v", name, err)
			return
		}
		if r.Output != nil {
			r.Output(name, out)
		}
	}()
}

// Wait blocks until every started hook has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
