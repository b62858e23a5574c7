package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leonardomso/webcheck/internal/backend"
	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/event"
	"github.com/leonardomso/webcheck/internal/session"
	"github.com/leonardomso/webcheck/internal/ui"
)

var interactiveFlags requestFlags

// interactiveCmd represents the interactive command.
var interactiveCmd = &cobra.Command{
	Use:   "interactive [url...]",
	Short: "Launch the interactive checker form",
	Long: `Launch a terminal form to enter targets and request options, start
and stop checks, and browse results as they arrive.

URL arguments and --file pre-fill the targets field. Logs go to --log-file
if set; otherwise they are discarded so they do not corrupt the screen.

Controls:
  tab / shift+tab   Move between fields
  ctrl+r            Start check
  ctrl+x            Stop check
  ctrl+t            Switch between form and results
  ctrl+f            Cycle results filter
  ctrl+c            Quit`,
	Run: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	addRequestFlags(interactiveCmd, &interactiveFlags)
}

func runInteractive(_ *cobra.Command, args []string) {
	log := zap.NewNop()
	if logFile != "" {
		var err error
		log, err = newLogger()
		exitOnError(err, "")
	}
	defer func() { _ = log.Sync() }()

	lc, err := LoadConfig(interactiveFlags.noConfig)
	exitOnError(err, "")

	urls, err := CollectTargets(args, interactiveFlags.file)
	exitOnError(err, "")

	urlFilter, err := CreateFilterWithConfig(lc.Config(), interactiveFlags.ignoreDomains,
		interactiveFlags.ignorePatterns, interactiveFlags.ignoreRegex)
	exitOnError(err, "Error creating filter")
	logSettings(log, lc, urlFilter)

	bus := event.NewBus(event.WithLogger(log))
	defer bus.Close()

	be := backend.New(bus,
		backend.WithLogger(log),
		backend.WithConcurrency(lc.GetConcurrency(interactiveFlags.concurrency, checker.DefaultConcurrency)),
		backend.WithRetries(lc.GetRetries(interactiveFlags.retries, checker.DefaultMaxRetries)),
	)
	defer be.Close()

	alerts := &ui.Alerts{}
	sess := session.New(be, bus,
		session.WithState(lc.FormState(strings.Join(urls, "\n"), interactiveFlags.formOptions())),
		session.WithFilter(urlFilter),
		session.WithLogger(log),
		session.WithNotifier(alerts),
	)
	defer sess.Close()

	exitOnError(sess.SetupListeners(), "Error subscribing to check events")

	if err := ui.Run(context.Background(), sess, alerts); err != nil {
		log.Error("interactive mode", zap.Error(err))
		exitOnError(err, "Error running interactive mode")
	}
}
