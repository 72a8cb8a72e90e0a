package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/domain/entity"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/repository"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

type cartEventPublisher struct {
	conn    Conn
	subject string
}

func NewCartEventPublisher(conn Conn, subject string) (repository.CartEventPublisher, error) {
	if conn == nil {
		return nil, errors.New("NATS connection cannot be nil")
	}
	if subject == "" {
		return nil, errors.New("NATS subject cannot be empty")
	}
	return &cartEventPublisher{conn: conn, subject: subject}, nil
}

func (p *cartEventPublisher) PublishCartUpdated(ctx context.Context, event entity.CartEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart event for subject %s: %w", p.subject, err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish message to NATS subject %s: %w", p.subject, err)
	}
	return nil
}
