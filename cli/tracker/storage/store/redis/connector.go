package redis

/*
Плагин для пересылки отметок в Redis (PUBLISH в канал).

Раздел настроек, которые могут быть в конфиге для подключения хранилища:

server = "localhost:6379"
password = ""
db = "0"
channel = "positions"
*/

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const operationTimeout = 5 * time.Second

type Connector struct {
	client *redis.Client
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg

	server := c.config["server"]
	if server == "" {
		server = "localhost:6379"
	}

	db := 0
	if raw := c.config["db"]; raw != "" {
		var err error
		if db, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("не удалось получить номер базы Redis: %v", err)
		}
	}

	if c.config["channel"] == "" {
		c.config["channel"] = "positions"
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     server,
		Password: c.config["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
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

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err = c.client.Publish(ctx, c.config["channel"], payload).Err(); err != nil {
		return fmt.Errorf("не удалось отправить сообщение в Redis: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
