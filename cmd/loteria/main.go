// cmd/loteria is a command line player. It hosts or joins a room and plays a
// full round automatically through the public HTTP and websocket API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/loteria/internal/client"
	"github.com/jason-s-yu/loteria/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const usage = `usage: loteria [-server URL] [-v] <command> [flags]

commands:
  host     create a room, wait for players and play a round
  join     join a room by share code and play
  history  list recently finished rounds
`

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.TimeOnly})

	server := flag.String("server", envOr("LOTERIA_SERVER", "http://localhost:8080"), "base URL of the room service")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*server)
	args := flag.Args()[1:]
	var err error
	switch flag.Arg(0) {
	case "host":
		err = runHost(ctx, c, logger, args)
	case "join":
		err = runJoin(ctx, c, logger, args)
	case "history":
		err = runHistory(ctx, c, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("loteria")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runHost(ctx context.Context, c *client.Client, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	name := fs.String("name", "Host", "player name")
	players := fs.Int("players", models.MinPlayers, "start once this many players are seated and ready")
	interval := fs.Int("interval", models.DefaultDrawIntervalMs, "draw interval in milliseconds")
	serverDraws := fs.Bool("server-draws", false, "the service paces draws itself")
	fs.Parse(args)
	if *players < models.MinPlayers || *players > models.MaxPlayers {
		return fmt.Errorf("players must be between %d and %d", models.MinPlayers, models.MaxPlayers)
	}

	rm, err := c.Create(ctx, *name)
	if err != nil {
		return err
	}
	defer leave(c, logger)
	if _, err := c.SetDrawInterval(ctx, *interval); err != nil {
		return err
	}
	if _, err := c.SetReady(ctx, true); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"code": rm.Code, "room": rm.ID}).Infof("room open, waiting for %d players", *players)

	var waitErr error
	err = c.Follow(ctx, rm.ID, func(r *models.Room) bool {
		if r == nil {
			waitErr = errors.New("room closed while waiting")
			return false
		}
		logger.Debugf("%d seated, all ready: %v", len(r.Players), r.AllReady())
		return len(r.Players) < *players || !r.AllReady()
	})
	if err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}

	if _, err := c.Start(ctx); err != nil {
		return err
	}
	logger.Info("round started")
	return play(ctx, c, logger, client.WithPacing(!*serverDraws))
}

func runJoin(ctx context.Context, c *client.Client, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	code := fs.String("code", "", "share code of the room")
	name := fs.String("name", "Player", "player name")
	fs.Parse(args)
	if *code == "" {
		return errors.New("join needs -code")
	}

	rm, err := c.JoinByCode(ctx, *code, *name)
	if err != nil {
		return err
	}
	defer leave(c, logger)
	if _, err := c.SetReady(ctx, true); err != nil {
		return err
	}
	logger.WithField("room", rm.ID).Infof("joined %s's room, ready", hostName(rm))
	return play(ctx, c, logger)
}

func play(ctx context.Context, c *client.Client, logger *logrus.Logger, opts ...client.PlayerOption) error {
	p := client.NewPlayer(c, logger, opts...)
	rm, err := p.Play(ctx)
	if err != nil {
		return err
	}
	if rm == nil {
		logger.Info("the host closed the room")
		return nil
	}
	fmt.Printf("board:   %v\n", p.Board())
	switch rm.EndReason() {
	case models.EndReasonClaim:
		fmt.Printf("winner:  %s with %v\n", *rm.Winner, rm.WinningPattern)
	case models.EndReasonLastStanding:
		fmt.Printf("winner:  %s (last eligible player)\n", *rm.Winner)
	default:
		fmt.Println("the deck ran out with no winner")
	}
	return nil
}

func hostName(rm *models.Room) string {
	if i := rm.FindPlayer(rm.HostID); i >= 0 {
		return rm.Players[i].Name
	}
	return "the host"
}

func leave(c *client.Client, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Leave(ctx); err != nil && !errors.Is(err, client.ErrNoSeat) {
		logger.WithError(err).Debug("leave failed")
	}
}

func runHistory(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of rounds")
	fs.Parse(args)

	rounds, err := c.History(ctx, *limit)
	if err != nil {
		return err
	}
	for _, r := range rounds {
		winner := "-"
		if r.Winner != nil {
			winner = *r.Winner
		}
		fmt.Printf("%s  %s  %-14s  %-12s  %d cards  %d players\n",
			r.FinishedAt.Local().Format(time.DateTime), r.Code, r.EndReason, winner, r.CardsCalled, len(r.Players))
	}
	return nil
}
