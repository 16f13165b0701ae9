package nats

/*
Плагин для пересылки отметок в NATS.

Раздел настроек, которые должны быть в конфиге для подключения хранилища:

servers = "nats://localhost:4222"
topic = "positions"
max_reconnects = 5   (необязательно)
*/

import (
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
)

type Connector struct {
	connection *nats.Conn
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	var (
		err error
	)
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	if c.config["servers"] == "" || c.config["topic"] == "" {
		return fmt.Errorf("для NATS обязательны параметры servers и topic")
	}

	opts := []nats.Option{nats.Name("bus-tracker")}
	if raw := c.config["max_reconnects"]; raw != "" {
		maxReconnects, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("не удалось получить max_reconnects: %v", err)
		}
		opts = append(opts, nats.MaxReconnects(maxReconnects))
	}

	if c.connection, err = nats.Connect(c.config["servers"], opts...); err != nil {
		return fmt.Errorf("ошибка подключения к NATS: %v", err)
	}
	return err
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на отметку")
	}

	payload, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации отметки: %v", err)
	}

	if err = c.connection.Publish(c.config["topic"], payload); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	err := c.connection.Flush()
	c.connection.Close()
	return err
}
