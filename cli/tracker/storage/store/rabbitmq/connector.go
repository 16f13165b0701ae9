package rabbitmq

/*
Плагин для пересылки отметок в RabbitMQ.

Раздел настроек, которые должны быть в конфиге для подключения хранилища:

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
exchange = "positions"
exchange_type = "topic"   (необязательно)
key = "positions"         (необязательно)
*/

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

type Connector struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     map[string]string
	mu         sync.Mutex
}

func (c *Connector) Init(cfg map[string]string) error {
	var (
		err error
	)
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	if c.config["exchange"] == "" {
		return fmt.Errorf("для RabbitMQ обязателен параметр exchange")
	}

	conStr := fmt.Sprintf("amqp://%s:%s@%s:%s/", c.config["user"], c.config["password"], c.config["host"], c.config["port"])
	if c.connection, err = amqp.Dial(conStr); err != nil {
		return fmt.Errorf("ошибка установки соединения с RabbitMQ: %v", err)
	}

	if c.channel, err = c.connection.Channel(); err != nil {
		return fmt.Errorf("ошибка открытия канала RabbitMQ: %v", err)
	}

	exchangeType := c.config["exchange_type"]
	if exchangeType == "" {
		exchangeType = "topic"
	}
	if err = c.channel.ExchangeDeclare(c.config["exchange"], exchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("не удалось объявить точку обмена: %v", err)
	}
	return nil
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на отметку")
	}

	payload, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации отметки: %v", err)
	}

	key := c.config["key"]
	if key == "" {
		key = "positions"
	}

	// amqp.Channel не рассчитан на конкурентную публикацию
	c.mu.Lock()
	defer c.mu.Unlock()

	if err = c.channel.Publish(
		c.config["exchange"],
		key,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/octet-stream",
			Body:        payload,
		},
	); err != nil {
		return fmt.Errorf("не удалось отправить сообщение в RabbitMQ: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
