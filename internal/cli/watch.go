// Package cli — watch.go implements the root watch behavior: resolve
// configuration and targets, build the engine over a connection pool,
// and run the single dispatch loop until interrupted.
package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goodCoderXD/cync/internal/config"
	"github.com/goodCoderXD/cync/internal/engine"
	"github.com/goodCoderXD/cync/internal/gitrepo"
	"github.com/goodCoderXD/cync/internal/model"
	"github.com/goodCoderXD/cync/internal/sshx"
	"github.com/goodCoderXD/cync/internal/watchfs"
)

// runWatch is the main logic for the root command.
func runWatch(ctx context.Context, pathArg string, targetArgs []string) error {
	root, settings, targets, err := resolveRun(pathArg, targetArgs)
	if err != nil {
		return err
	}

	logger := newLogger()

	pool := sshx.NewPool()
	defer pool.CloseAll()

	eng := engine.New(root, targets, pool, gitrepo.NewRepo(root), engineOptions(settings), logger)

	if createIfMissing {
		if err := eng.CreateMissingRoots(); err != nil {
			return err
		}
	}

	if resetTargets {
		if err := eng.Reconcile(); err != nil {
			return err
		}
	}

	watcher, err := watchfs.New(root, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}

	logger.Info("watching", "root", root, "targets", len(targets))

	// SIGHUP requests a reconciliation; SIGINT/SIGTERM stop the run.
	// Both are handled inside the one dispatch loop, so reconciliation
	// and event dispatch never run concurrently.
	reconcileCh := make(chan os.Signal, 1)
	signal.Notify(reconcileCh, syscall.SIGHUP)
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(reconcileCh)
	defer signal.Stop(stopCh)

	for {
		select {
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			eng.Dispatch(ev)

		case <-reconcileCh:
			if err := eng.Reconcile(); err != nil {
				logger.Error(err, "reconciliation failed")
			}

		case <-stopCh:
			logger.Info("shutting down")
			return watcher.Stop()

		case <-ctx.Done():
			return watcher.Stop()
		}
	}
}

// resolveRun turns the positional arguments into an absolute watch
// root, loaded settings, and parsed targets.
func resolveRun(pathArg string, targetArgs []string) (string, config.Settings, []model.Target, error) {
	root := pathArg
	if root == "." {
		wd, err := os.Getwd()
		if err != nil {
			return "", config.Settings{}, nil, model.WrapCLIError(model.ExitGeneralError,
				"determine working directory", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", config.Settings{}, nil, model.WrapCLIError(model.ExitConfigError,
			"resolve watch root", err)
	}

	settings, err := config.Load(root)
	if err != nil {
		return "", config.Settings{}, nil, err
	}
	if extensionsFlag != "" {
		settings.Extensions = config.SplitList(extensionsFlag)
	}

	targets, err := resolveTargets(settings, targetArgs)
	if err != nil {
		return "", config.Settings{}, nil, err
	}

	return root, settings, targets, nil
}

// resolveTargets expands configured aliases and parses every target
// descriptor. At least one target is required — a watch with nowhere
// to mirror to is a configuration mistake, not an idle run.
func resolveTargets(settings config.Settings, targetArgs []string) ([]model.Target, error) {
	if len(targetArgs) == 0 {
		return nil, model.NewCLIError(model.ExitConfigError, "at least one target is required")
	}

	expanded := make([]string, 0, len(targetArgs))
	for _, arg := range targetArgs {
		expanded = append(expanded, settings.ExpandTarget(arg))
	}
	return model.ParseTargets(expanded)
}

// engineOptions maps resolved settings onto the engine's tunables.
func engineOptions(settings config.Settings) engine.Options {
	return engine.Options{
		Extensions:   settings.Extensions,
		Ignore:       settings.Ignore,
		ScriptSuffix: settings.ScriptSuffix,
	}
}
