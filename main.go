package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/vreid/rpsls/internal/pkg/common"
	"github.com/vreid/rpsls/internal/pkg/contracts"
	"github.com/vreid/rpsls/internal/pkg/creator"
	"github.com/vreid/rpsls/internal/pkg/join"
	"github.com/vreid/rpsls/internal/pkg/journal"
	"github.com/vreid/rpsls/internal/pkg/salt"
	"github.com/vreid/rpsls/internal/pkg/session"
	"github.com/vreid/rpsls/internal/pkg/wallet"
	"golang.org/x/sync/errgroup"

	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

var ErrMissingMove = errors.New("missing move")

type RPSLSService struct {
	EchoService *common.EchoService `do:""`

	JournalService *journal.JournalService `do:""`
	SessionService *session.SessionService `do:""`
	CreatorService *creator.CreatorService `do:""`
	JoinService    *join.JoinService       `do:""`
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))

	do.ProvideNamedValue(i, "rpc-url", cmd.String("rpc-url"))
	do.ProvideNamedValue(i, "private-key", cmd.String("private-key"))
	do.ProvideNamedValue(i, "keystore", cmd.String("keystore"))
	do.ProvideNamedValue(i, "keystore-password", cmd.String("keystore-password"))
	do.ProvideNamedValue(i, "rps-artifact", cmd.String("rps-artifact"))
	do.ProvideNamedValue(i, "hasher-artifact", cmd.String("hasher-artifact"))

	do.ProvideNamedValue(i, "poll-interval", cmd.Duration("poll-interval"))
	do.ProvideNamedValue(i, "session-idle", cmd.Duration("session-idle"))

	journalChan := make(chan journal.Event, 1000) //nolint:mnd
	var journalSource <-chan journal.Event = journalChan

	do.ProvideNamedValue(i, "journal-source", journalSource)
	do.ProvideNamedValue(i, "journal-sink", journal.Sink(journalChan))

	do.Provide(i, common.NewEchoService)
	do.Provide(i, common.NewDatabaseService)

	do.Provide(i, wallet.NewWalletService)
	do.Provide(i, journal.NewJournalService)
	do.Provide(i, session.NewSessionService)
	do.Provide(i, creator.NewCreatorService)
	do.Provide(i, join.NewJoinService)

	do.Provide(i, do.InvokeStruct[RPSLSService])

	rpslsService, err := do.Invoke[RPSLSService](i)
	if err != nil {
		return fmt.Errorf("failed to create rpsls service: %w", err)
	}

	rpslsService.JournalService.Start()
	rpslsService.SessionService.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(rpslsService.EchoService.Start)

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		i.ShutdownWithContext(shutdownCtx)

		return nil
	})

	//nolint:wrapcheck
	return g.Wait()
}

func runSalt(_ context.Context, _ *cli.Command) error {
	_, err := fmt.Fprintln(os.Stdout, salt.Generate().String())

	//nolint:wrapcheck
	return err
}

func runCommit(_ context.Context, cmd *cli.Command) error {
	if cmd.String("move") == "" {
		return ErrMissingMove
	}

	move, err := contracts.ParseMove(cmd.String("move"))
	if err != nil {
		return fmt.Errorf("failed to parse move: %w", err)
	}

	s, err := salt.Parse(cmd.String("salt"))
	if err != nil {
		return fmt.Errorf("failed to parse salt: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, contracts.Commitment(move, s).Hex())

	//nolint:wrapcheck
	return err
}

func main() {
	//nolint:exhaustruct
	cmd := &cli.Command{
		Name:  "rpsls",
		Usage: "play rock paper scissors spock lizard against a wager contract",
		Commands: []*cli.Command{
			{
				Name: "server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("RPSLS_PORT"),
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Value:   "./rpsls/data",
						Sources: cli.EnvVars("RPSLS_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:    "rpc-url",
						Value:   "http://127.0.0.1:8545",
						Sources: cli.EnvVars("RPSLS_RPC_URL"),
					},
					&cli.StringFlag{
						Name:    "private-key",
						Sources: cli.EnvVars("RPSLS_PRIVATE_KEY"),
					},
					&cli.StringFlag{
						Name:    "keystore",
						Sources: cli.EnvVars("RPSLS_KEYSTORE"),
					},
					&cli.StringFlag{
						Name:    "keystore-password",
						Sources: cli.EnvVars("RPSLS_KEYSTORE_PASSWORD"),
					},
					&cli.StringFlag{
						Name:    "rps-artifact",
						Value:   "./contracts/RPS.json",
						Sources: cli.EnvVars("RPSLS_RPS_ARTIFACT"),
					},
					&cli.StringFlag{
						Name:    "hasher-artifact",
						Value:   "./contracts/Hasher.json",
						Sources: cli.EnvVars("RPSLS_HASHER_ARTIFACT"),
					},
					&cli.DurationFlag{
						Name:    "poll-interval",
						Value:   session.DefaultInterval,
						Sources: cli.EnvVars("RPSLS_POLL_INTERVAL"),
					},
					&cli.DurationFlag{
						Name:    "session-idle",
						Value:   10 * time.Minute, //nolint:mnd
						Sources: cli.EnvVars("RPSLS_SESSION_IDLE"),
					},
				},
				Action: runServer,
			},
			{
				Name:   "salt",
				Usage:  "print a fresh 256-bit salt",
				Action: runSalt,
			},
			{
				Name:  "commit",
				Usage: "print the commitment for a move and salt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name: "move",
					},
					&cli.StringFlag{
						Name: "salt",
					},
				},
				Action: runCommit,
			},
		},
		DefaultCommand: "server",
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
