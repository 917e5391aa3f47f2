// Package main is the mailshim-child entrypoint: the unprivileged,
// single-account process the privileged parent spawns and speaks
// MSG_ACTION/MSG_DONE/MSG_EXIT with over its own stdin/stdout (C6, C1,
// §4.4, §4.6, §4.7).
//
// Usage:
//
//	mailshim-child -config <path> -account <name>
//
// Exit codes (§7):
//   - 0: fetch loop completed (ExitSuccess)
//   - 1: account-fatal backend or processing error (ExitAccountFatal)
//   - 2: the CLI application returned an error without exiting through
//     exitErrHandler (the value of ExitProtocolFatal). An IPC failure
//     during the run does not produce this code: it fails the current
//     mail, which the fetch loop logs and skips.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mailshim/mailshim/action"
	"github.com/mailshim/mailshim/child"
	"github.com/mailshim/mailshim/config"
	"github.com/mailshim/mailshim/fetchbackend"
	"github.com/mailshim/mailshim/fetchbackend/imapbackend"
	"github.com/mailshim/mailshim/ipc"
	"github.com/mailshim/mailshim/log"
	"github.com/mailshim/mailshim/metrics"
	"github.com/mailshim/mailshim/signals"
	"github.com/mailshim/mailshim/types"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "mailshim-child",
		Usage: "unprivileged per-account fetch/rule/deliver loop",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true, Usage: "path to mailshim config file"},
			&cli.StringFlag{Name: "account", Required: true, Usage: "account name to handle"},
		},
		Action:         run,
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(int(child.ExitProtocolFatal))
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
	fmt.Fprintf(os.Stderr, "mailshim-child: %v\n", err)
	os.Exit(int(child.ExitAccountFatal))
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), int(child.ExitAccountFatal))
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return cli.Exit(err.Error(), int(child.ExitAccountFatal))
	}

	accountName := c.String("account")
	account := findAccount(resolved.Accounts, accountName)
	if account == nil {
		return cli.Exit(fmt.Sprintf("mailshim-child: unknown account %q", accountName), int(child.ExitAccountFatal))
	}

	backend, err := newBackend(account.Backend)
	if err != nil {
		return cli.Exit(err.Error(), int(child.ExitAccountFatal))
	}

	registry := action.NewRegistry(resolved.Actions)
	channel := ipc.NewChannel(ipc.NewStdioConn(os.Stdin, os.Stdout, nil))

	logger := log.NewLogger(account.Name)
	orchestrator := &child.Orchestrator{
		Account:          account,
		Backend:          backend,
		Rules:            resolved.Rules,
		Registry:         registry,
		IPC:              channel,
		Logger:           logger,
		Metrics:          metrics.NewCollector(account.Name, account.Backend),
		ImplicitDecision: resolved.ImplicitDecision,
		KeepAll:          resolved.KeepAll,
		FQDN:             resolved.FQDN,
	}

	handler := signals.Install(func() {
		_ = channel.Close()
	})
	defer handler.Stop()

	code, runErr := orchestrator.Run(context.Background())

	if exitErr := child.SendExit(channel, runErr != nil); exitErr != nil {
		logger.Warn("exit handshake failed", map[string]any{"error": exitErr.Error()})
	}

	if runErr != nil {
		logger.Error("account run failed", map[string]any{"error": runErr.Error()})
		return cli.Exit(runErr.Error(), int(code))
	}
	return cli.Exit("", int(code))
}

func findAccount(accounts []*types.Account, name string) *types.Account {
	for _, a := range accounts {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func newBackend(kind string) (fetchbackend.Backend, error) {
	switch kind {
	case "imap", "imaps":
		return imapbackend.New(), nil
	default:
		return nil, fmt.Errorf("mailshim-child: unknown backend %q", kind)
	}
}
