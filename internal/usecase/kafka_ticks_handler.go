package usecase

import (
	"context"
	"encoding/json"
	"time"

	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"
	pkgkafka "GoldPulse/pkg/kafka"
)

// KafkaTicksHandler ingests the raw tick topic into ClickHouse when the
// deployment splits collection from storage.
type KafkaTicksHandler struct {
	topic   string
	store   drepo.TickStore
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, store drepo.TickStore, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, ts, price, bid, ask}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		TS     int64   `json:"ts"`
		Price  float64 `json:"price"`
		Bid    float64 `json:"bid"`
		Ask    float64 `json:"ask"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	start := time.Now()
	err := h.store.Store(ctx, m.Symbol, &models.PriceSample{
		Timestamp: time.Unix(m.TS, 0),
		Price:     m.Price,
		Bid:       m.Bid,
		Ask:       m.Ask,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
