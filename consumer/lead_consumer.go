package consumer

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"leadflow/utils"
)

// LeadEvent is the accepted-lead message the HTTP layer publishes.
type LeadEvent struct {
	Event  string          `json:"event"`
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record"`
}

// LeadConsumer maintains the read-side projections of accepted leads:
// the Elasticsearch search index and a short-lived redis cache.
type LeadConsumer struct {
	cache    utils.RedisClient
	es       utils.ElasticsearchClient
	reader   *kafka.Reader
	shutdown chan struct{}
}

func NewLeadConsumer(cache utils.RedisClient, es utils.ElasticsearchClient) *LeadConsumer {
	return &LeadConsumer{
		cache: cache,
		es:    es,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{os.Getenv("KAFKA_BROKER")},
			Topic:   utils.LeadEventsTopic,
			GroupID: "leadflow-indexer",
			MaxWait: 10 * time.Second,
		}),
		shutdown: make(chan struct{}),
	}
}

func (c *LeadConsumer) Start(ctx context.Context) {
	log.Println("Starting lead event consumer...")

	go func() {
		for {
			select {
			case <-c.shutdown:
				return
			default:
				c.processMessages(ctx)
			}
		}
	}()
}

func (c *LeadConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		log.Printf("Error closing Kafka reader: %v", err)
	}
}

func (c *LeadConsumer) processMessages(ctx context.Context) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if err == context.Canceled {
			return
		}
		log.Printf("Kafka read error: %v (will retry)", err)
		time.Sleep(5 * time.Second)
		return
	}

	var event LeadEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Failed to unmarshal lead event: %v", err)
		return
	}

	if event.Event != "lead_accepted" {
		log.Printf("Unknown event type: %s", event.Event)
		return
	}

	c.handleLeadAccepted(ctx, event)
}

func (c *LeadConsumer) handleLeadAccepted(ctx context.Context, event LeadEvent) {
	if c.cache != nil {
		if err := c.cache.SetToCache(ctx, "lead:"+event.ID, string(event.Record), 24*time.Hour); err != nil {
			log.Printf("Failed to cache lead %s: %v", event.ID, err)
		}
	}

	if c.es != nil {
		index := indexFor(event.Kind)
		if err := c.es.IndexLead(ctx, index, event.ID, event.Record); err != nil {
			log.Printf("Failed to index lead %s in Elasticsearch: %v", event.ID, err)
		}
	}

	log.Printf("Processed lead_accepted event for %s %s", event.Kind, event.ID)
}

func indexFor(kind string) string {
	if kind == "phone_lead" {
		return "phone_leads"
	}
	return "consultations"
}
