package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const botCommandQueueName = "bot.commands"

// CreateEventFunc handles one bot-issued create-event command.  main
// wires this to the event service; the indirection keeps the queue
// package free of a dependency on the service layer.
type CreateEventFunc func(ctx context.Context, cmd CreateEventCommand) error

// StartBotConsumer connects to RabbitMQ, declares the bot.commands
// queue (durable), and starts consuming create-event commands issued by
// chat integrations.  It runs a reconnect loop with exponential backoff
// and keeps running across broker restarts; processing errors are
// logged and the offending message rejected so the service continues
// operating.  Intended to be launched on its own goroutine.
func StartBotConsumer(url string, handle CreateEventFunc) {
	if url == "" {
		url = brokerURL()
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("bot-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, handle); err != nil {
			log.Printf("bot-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, handle CreateEventFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("bot-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(botCommandQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(botCommandQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleCommand(d.Body, handle); err != nil {
			log.Printf("bot-consumer: handle command failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleCommand(body []byte, handle CreateEventFunc) error {
	var cmd CreateEventCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return errors.New("command missing title")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := handle(ctx, cmd); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	log.Printf("bot-consumer: created event %q", cmd.Title)
	return nil
}
