// Package main is the mailshim entrypoint: the privileged parent that
// reads the shared configuration, spawns one mailshim-child subprocess
// per configured account, and services each child's MSG_ACTION
// requests for the write-back and stateful deliver kinds that must run
// outside the unprivileged child (C5, C1, §4.5, §4.6).
//
// Usage:
//
//	mailshim run -config <path> [-account <name> ...]
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mailshim/mailshim/action"
	"github.com/mailshim/mailshim/config"
	"github.com/mailshim/mailshim/ipc"
	"github.com/mailshim/mailshim/log"
	"github.com/mailshim/mailshim/types"
	"github.com/urfave/cli/v2"
)

const (
	exitSuccess     = 0
	exitAccountFail = 1
)

func main() {
	app := &cli.App{
		Name:  "mailshim",
		Usage: "privileged parent: spawns per-account children and services their deliveries",
		Commands: []*cli.Command{
			runCommand(),
		},
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitAccountFail)
	}
}

func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "mailshim: %v\n", err)
	os.Exit(exitAccountFail)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run all (or selected) configured accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true},
			&cli.StringSliceFlag{Name: "account", Usage: "restrict to these account names (default: all)"},
			&cli.StringFlag{Name: "child-binary", Value: "mailshim-child", Usage: "path to the mailshim-child executable"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitAccountFail)
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return cli.Exit(err.Error(), exitAccountFail)
	}

	registry := action.NewRegistry(resolved.Actions)
	childBinary := c.String("child-binary")
	wanted := c.StringSlice("account")

	accountsByName := make(map[string]*types.Account, len(resolved.Accounts))
	for _, a := range resolved.Accounts {
		accountsByName[a.Name] = a
	}

	targets := resolved.Accounts
	if len(wanted) > 0 {
		targets = targets[:0]
		for _, name := range wanted {
			a, ok := accountsByName[name]
			if !ok {
				return cli.Exit(fmt.Sprintf("mailshim: unknown account %q", name), exitAccountFail)
			}
			targets = append(targets, a)
		}
	}

	logger := log.NewLogger("mailshim")

	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, acct := range targets {
		wg.Add(1)
		go func(i int, acct *types.Account) {
			defer wg.Done()
			errs[i] = runChild(childBinary, c.String("config"), acct, registry, logger)
		}(i, acct)
	}
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", targets[i].Name, err))
		}
	}
	if len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d account(s) failed:\n%s", len(failed), joinLines(failed)), exitAccountFail)
	}
	return cli.Exit("", exitSuccess)
}

// runChild spawns one mailshim-child for acct and services its
// MSG_ACTION requests until the child's MSG_EXIT, per the shutdown
// handshake (§4.4, §4.6). The child's own stdin/stdout carry the IPC
// channel; its stderr is inherited so its structured logs surface
// directly.
func runChild(childBinary, configPath string, acct *types.Account, registry *action.Registry, logger *log.Logger) error {
	cmd := exec.Command(childBinary, "-config", configPath, "-account", acct.Name)
	cmd.Stderr = os.Stderr

	childStdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	childStdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start child: %w", err)
	}

	channel := ipc.NewChannel(ipc.NewStdioConn(childStdout, childStdin, nil))

	for {
		req, exited, err := channel.Serve()
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("ipc: %w", err)
		}
		if exited {
			break
		}

		reply := registry.ServePrivileged(acct, req)
		if reply.Error {
			logger.Warn("action failed in privileged parent", map[string]any{
				"account": acct.Name, "action": req.ActionName, "uid": req.UID,
			})
		}
		if err := channel.SendDone(reply); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return fmt.Errorf("ipc: send done: %w", err)
		}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("child exited: %w", err)
	}
	return nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += "  " + l
	}
	return out
}
