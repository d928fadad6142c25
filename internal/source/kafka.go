package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"govguard/internal/config"
	"govguard/internal/model"
)

type regionMessage struct {
	Date       string  `json:"date"`
	Region     string  `json:"region"`
	Volume     float64 `json:"update_volume_count"`
	Successes  float64 `json:"successful_updates"`
	Rejections float64 `json:"rejected_updates"`
}

// StartKafka consumes region-daily records from the configured topic into the
// feed. It returns immediately; the reader goroutine stops with the context.
func StartKafka(ctx context.Context, cfg config.KafkaConfig, feed *Feed, logger *slog.Logger) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Info("kafka feed disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka feed enabled", "brokers", cfg.Brokers, "topic", cfg.Topic, "group_id", cfg.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			var msg regionMessage
			if err := json.Unmarshal(m.Value, &msg); err != nil {
				if logger != nil {
					logger.Warn("kafka decode error", "err", err)
				}
				continue
			}
			rec, err := msg.toRecord()
			if err != nil {
				if logger != nil {
					logger.Warn("kafka record invalid", "err", err)
				}
				continue
			}
			feed.Append(rec)
		}
	}()
}

func (m regionMessage) toRecord() (model.RegionRecord, error) {
	date, err := time.Parse(model.DateLayout, m.Date)
	if err != nil {
		return model.RegionRecord{}, err
	}
	return model.RegionRecord{
		Date:       date,
		Region:     m.Region,
		Volume:     m.Volume,
		Successes:  m.Successes,
		Rejections: m.Rejections,
	}, nil
}
