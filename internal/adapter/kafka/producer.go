package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.ProductEventsPublisher = (*ProductEventsProducer)(nil)

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A ProductEventsProducer publishes [domain.ProductEvent] keyed by product id,
// so the events of one product stay ordered within a partition.
type ProductEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewProductEventsProducer(
	opts ...ProducerOpt,
) (ProductEventsProducer, error) {
	const op = "NewProductEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return ProductEventsProducer{}, opErr(err, op)
		}
	}

	opPrefix := "ProductEventsProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return ProductEventsProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p ProductEventsProducer) Close() {
	p.producer.close()
}

func (p ProductEventsProducer) PublishProductEvent(
	ctx context.Context, evt domain.ProductEvent,
) error {
	const op = "PublishProductEvent"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(evt)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	return nil
}

func (p ProductEventsProducer) createRecord(
	evt domain.ProductEvent,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := productEventToSchemaV1(evt)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	return &kgo.Record{Key: []byte(s.ProductID), Value: b}, nil
}
