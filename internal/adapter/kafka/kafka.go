package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt connects to the brokers and checks they are reachable.
// tlsConfig may be nil.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, tlsConfig *tls.Config,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kgoOpts := []kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		}
		if tlsConfig != nil {
			kgoOpts = append(kgoOpts, kgo.DialTLSConfig(tlsConfig))
		}

		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerWithClientOpt uses an already built client.
func ProducerWithClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func productEventToSchemaV1(v domain.ProductEvent) (s schema.ProductEventV1) {
	s.Kind = string(v.Kind)
	s.ProductID = v.Product.ID.String()
	s.Title = v.Product.Title
	s.Price = v.Product.Price
	s.Description = v.Product.Description
	s.Category = v.Product.Category
	s.Image = v.Product.Image
	s.OccurredAt = v.OccurredAt

	if r := v.Product.Rating; r != nil {
		s.Rating = &schema.RatingV1{Rate: r.Rate, Count: int64(r.Count)}
	}
	return
}
