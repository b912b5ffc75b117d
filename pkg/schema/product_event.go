package schema

import (
	"sync"
	"time"

	"github.com/hamba/avro/v2"
)

const ProductEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "prodmng",
	"name": "product_event",
	"fields" : [
		{"name": "kind", "type": "string"},
		{"name": "product_id", "type": "string"},
		{"name": "title", "type": "string"},
		{"name": "price", "type": "double"},
		{"name": "description", "type": "string"},
		{"name": "category", "type": "string"},
		{"name": "image", "type": "string"},
		{"name": "rating", "type": ["null", {
			"type": "record",
			"name": "rating",
			"fields": [
				{"name": "rate", "type": "double"},
				{"name": "count", "type": "long"}
			]
		}], "default": null},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

type (
	ProductEventV1 struct {
		Kind        string    `avro:"kind"`
		ProductID   string    `avro:"product_id"`
		Title       string    `avro:"title"`
		Price       float64   `avro:"price"`
		Description string    `avro:"description"`
		Category    string    `avro:"category"`
		Image       string    `avro:"image"`
		Rating      *RatingV1 `avro:"rating"`
		OccurredAt  time.Time `avro:"occurred_at"`
	}

	RatingV1 struct {
		Rate  float64 `avro:"rate"`
		Count int64   `avro:"count"`
	}
)

var productEventV1 = sync.OnceValue(func() avro.Schema {
	return avro.MustParse(ProductEventSchemaTextV1)
})

// ProductEventV1Avro returns the parsed [ProductEventSchemaTextV1].
func ProductEventV1Avro() avro.Schema {
	return productEventV1()
}
