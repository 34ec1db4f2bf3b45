package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labassist/backend/internal/domain"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors accepted check reports onto a topic for downstream consumers.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// ReportEvent is the message body published for each stored report.
type ReportEvent struct {
	ID           uint                 `json:"id"`
	HostIdentity string               `json:"host_identity"`
	SoftwareName string               `json:"software_name"`
	Status       domain.InstallStatus `json:"status"`
	ResolvedPath string               `json:"resolved_path,omitempty"`
	Platform     string               `json:"platform,omitempty"`
	AgentVersion string               `json:"agent_version,omitempty"`
	ReportedAt   string               `json:"reported_at"`
}

func (p *KafkaPublisher) PublishReport(ctx context.Context, report *domain.CheckReport) error {
	payload, err := json.Marshal(ReportEvent{
		ID:           report.ID,
		HostIdentity: report.HostIdentity,
		SoftwareName: report.SoftwareName,
		Status:       report.Status,
		ResolvedPath: report.ResolvedPath,
		Platform:     report.Platform,
		AgentVersion: report.AgentVersion,
		ReportedAt:   report.ReportedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}

	// Keyed by host and software so one item's history stays on one partition.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(report.HostIdentity + "/" + report.SoftwareName),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
