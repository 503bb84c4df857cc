// Package main is the entrypoint for rmq-route, which prints the route of a topic
// and optionally publishes one message to it.
//
// Usage:
//
//	rmq-route [flags] TOPIC [BODY]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/AutoMQ/rocketmq-client/pkg/config"
	"github.com/AutoMQ/rocketmq-client/pkg/producer"
	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/client"
	"github.com/AutoMQ/rocketmq-client/pkg/util/logutil"
)

func main() {
	cfg, err := config.NewConfig(os.Args[1:], os.Stderr)
	if errors.Cause(err) == pflag.ErrHelp {
		os.Exit(0)
	}

	// create a logger first
	logger := cfg.Logger()
	if logger == nil {
		// something went wrong, create a new temporary logger
		var zapErr error
		logger, zapErr = zap.NewProduction()
		if zapErr != nil {
			fmt.Printf("error creating zap logger %v", zapErr)
			os.Exit(1)
		}
	}
	logger.Debug("running", zap.Strings("args", os.Args))
	if err != nil {
		logger.Error("failed to parse config", zap.Error(err))
		os.Exit(1)
	}

	syncLogger := func() { _ = logger.Sync() }

	// check config
	err = cfg.Adjust()
	if err != nil {
		logger.Error("failed to adjust config", zap.Error(err))
		exit(1, syncLogger)
	}
	err = cfg.Validate()
	if err != nil {
		logger.Error("failed to validate config", zap.Error(err))
		exit(1, syncLogger)
	}
	args := cfg.Args()
	if len(args) == 0 || len(args) > 2 {
		fmt.Fprintln(os.Stderr, "usage: rmq-route [flags] TOPIC [BODY]")
		exit(2, syncLogger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		defer logutil.LogPanic(logger)
		sig := <-sc
		logger.Info("got signal to exit", zap.String("signal", sig.String()))
		cancel()
	}()

	err = run(ctx, cfg, args, logger)
	cancel()
	if err != nil {
		logger.Error("failed to run", zap.Error(err))
		exit(1, syncLogger)
	}
	exit(0, syncLogger)
}

func run(ctx context.Context, cfg *config.Config, args []string, logger *zap.Logger) error {
	opts, err := cfg.PoolOptions()
	if err != nil {
		return errors.WithMessage(err, "pool options")
	}
	pool := client.NewPool(opts, logger)
	defer func() {
		if err := pool.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down client pool", zap.Error(err))
		}
	}()

	p, err := producer.New(cfg, pool, logger)
	if err != nil {
		return errors.WithMessage(err, "create producer")
	}
	if err := p.Start(); err != nil {
		return errors.WithMessage(err, "start producer")
	}
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	topic := args[0]
	info, err := p.PublishInfo(ctx, topic)
	if err != nil {
		return err
	}
	printRoute(info)

	if len(args) < 2 {
		return nil
	}
	result, err := p.Send(ctx, &producer.Message{Topic: topic, Body: []byte(args[1])})
	if err != nil {
		return errors.WithMessage(err, "send message")
	}
	fmt.Printf("\nsent %s to %s in %d attempt(s)\n", result.MessageID, result.Queue, result.Attempts)
	return nil
}

func printRoute(info *route.TopicPublishInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTITION\tPERMISSION\tBROKER\tBROKER ID\tENDPOINTS")
	for _, p := range info.Route().Partitions() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Permission, p.Broker.Name, p.Broker.ID, p.Broker.Endpoints)
	}
	_ = w.Flush()
	fmt.Printf("\n%d of %d partitions writable\n", info.Writable(), info.Route().Len())
	if mq, ok := info.SelectOneMessageQueue(); ok {
		fmt.Printf("next queue: %s (%s)\n", mq, mq.Endpoints)
	}
}

func exit(code int, deferred func()) {
	deferred()
	os.Exit(code)
}
