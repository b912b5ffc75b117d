package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/niksmo/prodmng/config"
	"github.com/niksmo/prodmng/internal/adapter"
	"github.com/niksmo/prodmng/pkg/sigctx"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	partitions        = 3
	replicationFactor = 3
	cleanupPolicy     = "delete"
	retention         = 7 * 24 * time.Hour
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext(context.Background())
	defer closeApp()

	cfg := config.Load()
	if !cfg.Events.Enabled() {
		fmt.Println("events.seed_brokers is empty, nothing to do")
		return
	}

	cl := createClient(cfg)
	defer cl.Close()

	printStart(cfg)
	defer printComplete(time.Now())

	if err := makeTopics(sigCtx, cl, cfg.Events.Topic); err != nil {
		printFail(err)
		return
	}
}

func createClient(cfg config.Config) *kadm.Client {
	tlsConfig, err := adapter.MakeTLSConfig(
		cfg.Events.TLS.CA, cfg.Events.TLS.Cert, cfg.Events.TLS.Key,
	)
	if err != nil {
		panic(err)
	}

	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Events.SeedBrokers...)}
	if tlsConfig != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	cl, err := kadm.NewOptClient(opts...)
	if err != nil {
		panic(err) // develop mistake
	}
	return cl
}

func topicConfig() map[string]*string {
	var (
		policy    = cleanupPolicy
		minISR    = "1"
		retentionMs = fmt.Sprint(retention.Milliseconds())
	)
	return map[string]*string{
		"cleanup.policy":      &policy,
		"min.insync.replicas": &minISR,
		"retention.ms":        &retentionMs,
	}
}

func makeTopics(ctx context.Context, cl *kadm.Client, topics ...string) error {
	responses, err := cl.CreateTopics(
		ctx,
		partitions,
		replicationFactor,
		topicConfig(),
		topics...,
	)
	if err != nil {
		return err
	}

	var errs []error
	for _, res := range responses.Sorted() {
		err := res.Err
		if err != nil {
			if errors.Is(res.Err, kerr.TopicAlreadyExists) {
				fmt.Printf("topic: %q already exists\n", res.Topic)
			} else {
				errs = append(errs, err)
			}
			continue
		}
		fmt.Printf("topic: %q successfully created\n", res.Topic)
	}

	return errors.Join(errs...)
}

func printStart(cfg config.Config) {
	fmt.Printf("initializing topics...\n\t- %q\n\n", cfg.Events.Topic)
}

func printComplete(start time.Time) {
	fmt.Printf("\ncomplete in %s\n", time.Since(start))
}

func printFail(err error) {
	fmt.Printf("failed to create topics: \n%s\n", err)
}
