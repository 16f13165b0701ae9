package tarantool_queue

/*
Плагин для пересылки отметок в Tarantool queue.

Раздел exporters.tarantool_queue в конфиге:

host = "localhost"
port = "3301"
user = "user"
password = "pass"
queue = "positions"    (обязательно)
max_recons = 5
timeout = 1            (секунды)
reconnect = 1          (секунды)
ttl = 0                (секунды; время жизни задачи, 0 - без ограничения)
*/

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type settings struct {
	address       string
	queueName     string
	maxReconnects uint
	timeout       time.Duration
	reconnect     time.Duration
	ttl           time.Duration
	user          string
	password      string
}

func seconds(options map[string]string, name string, def int) (time.Duration, error) {
	raw := options[name]
	if raw == "" {
		return time.Duration(def) * time.Second, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("параметр %s должен быть неотрицательным целым: %q", name, raw)
	}
	return time.Duration(v) * time.Second, nil
}

func parseSettings(options map[string]string) (settings, error) {
	s := settings{
		address:   fmt.Sprintf("%s:%s", options["host"], options["port"]),
		queueName: options["queue"],
		user:      options["user"],
		password:  options["password"],
	}
	if s.queueName == "" {
		return s, errors.New("для Tarantool обязателен параметр queue")
	}

	s.maxReconnects = 5
	if raw := options["max_recons"]; raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return s, fmt.Errorf("параметр max_recons должен быть неотрицательным целым: %q", raw)
		}
		s.maxReconnects = uint(v)
	}

	var err error
	if s.timeout, err = seconds(options, "timeout", 1); err != nil {
		return s, err
	}
	if s.reconnect, err = seconds(options, "reconnect", 1); err != nil {
		return s, err
	}
	if s.ttl, err = seconds(options, "ttl", 0); err != nil {
		return s, err
	}
	return s, nil
}

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
	settings   settings
}

func (c *Connector) Init(options map[string]string) error {
	if options == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	s, err := parseSettings(options)
	if err != nil {
		return err
	}
	c.settings = s

	c.connection, err = tarantool.Connect(s.address, tarantool.Opts{
		Timeout:       s.timeout,
		Reconnect:     s.reconnect,
		MaxReconnects: s.maxReconnects,
		User:          s.user,
		Pass:          s.password,
	})
	if err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}
	c.queue = queue.New(c.connection, s.queueName)

	log.WithFields(log.Fields{"address": s.address, "queue": s.queueName}).Debug("Подключена очередь Tarantool")
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

	if c.settings.ttl > 0 {
		_, err = c.queue.PutWithOpts(payload, queue.Opts{Ttl: c.settings.ttl})
	} else {
		_, err = c.queue.Put(payload)
	}
	if err != nil {
		return fmt.Errorf("не удалось поставить отметку в очередь %s: %v", c.settings.queueName, err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
