package events

import "context"

// NoopProducer is used when no Kafka brokers are configured.
type NoopProducer struct{}

func (NoopProducer) PublishUpdate(context.Context, *UpdateEvent) error { return nil }
func (NoopProducer) Close() error                                      { return nil }
