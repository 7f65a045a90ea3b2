package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const TypeEmailVerification = "email_verification"

// VerificationMessage - запрос внешнему сервису на отправку кода подтверждения
type VerificationMessage struct {
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationNotifier передаёт код подтверждения e-mail во внешний сервис доставки
type VerificationNotifier interface {
	SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier публикует сообщения в топик уведомлений, ключ - e-mail
type KafkaNotifier struct {
	writer messageWriter
}

// ParseBrokers разбирает список брокеров через запятую, пустые элементы отбрасываются
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	data, err := json.Marshal(VerificationMessage{
		Type:      TypeEmailVerification,
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(email), Value: data, Time: time.Now().UTC()}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish verification code: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier используется, когда kafka не настроена: запрос только пишется в лог
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendVerificationCode(_ context.Context, email, _ string, expiresAt time.Time) error {
	n.log.Info("kafka is not configured, verification code dropped",
		slog.String("email", email), slog.Time("expires_at", expiresAt))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// New выбирает реализацию по наличию брокеров
func New(log *slog.Logger, brokers []string, topic string) VerificationNotifier {
	if len(brokers) == 0 {
		return NewLogNotifier(log)
	}
	return NewKafkaNotifier(brokers, topic)
}
