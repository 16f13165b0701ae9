package storage

import (
	"errors"

	"github.com/daniil11ru/bus-tracker/cli/tracker/storage/store/nats"
	"github.com/daniil11ru/bus-tracker/cli/tracker/storage/store/rabbitmq"
	"github.com/daniil11ru/bus-tracker/cli/tracker/storage/store/redis"
	"github.com/daniil11ru/bus-tracker/cli/tracker/storage/store/tarantool_queue"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidStorage = errors.New("хранилище не найдено")
var ErrUnknownStorage = errors.New("хранилище не поддерживается")

type Message = interface {
	ToBytes() ([]byte, error)
}

type Store interface {
	Connector
	Saver
}

// Saver интерфейс для подключения внешних хранилищ
type Saver interface {
	// Save сохранение в хранилище
	Save(Message) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Repository набор выходных хранилищ, в которые пересылаются новые отметки
type Repository struct {
	storages []Saver
	closers  []Connector
}

func NewRepository() *Repository {
	return &Repository{}
}

// AddStore добавляет хранилище для сохранения данных
func (r *Repository) AddStore(s Saver) {
	r.storages = append(r.storages, s)
	if c, ok := s.(Connector); ok {
		r.closers = append(r.closers, c)
	}
}

func (r *Repository) Len() int {
	return len(r.storages)
}

// Save сохраняет данные во все установленные хранилища. Ошибка одного хранилища
// не мешает записи в остальные.
func (r *Repository) Save(m Message) error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Save(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newStore(name string) (Store, error) {
	switch name {
	case "nats":
		return &nats.Connector{}, nil
	case "rabbitmq":
		return &rabbitmq.Connector{}, nil
	case "redis":
		return &redis.Connector{}, nil
	case "tarantool_queue":
		return &tarantool_queue.Connector{}, nil
	default:
		return nil, ErrUnknownStorage
	}
}

// LoadStorages загружает хранилища из структуры конфига
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	for name, params := range storages {
		db, err := newStore(name)
		if err != nil {
			return err
		}

		if err := db.Init(params); err != nil {
			return err
		}

		log.Infof("Подключено выходное хранилище %s", name)
		r.AddStore(db)
	}
	return nil
}

// Close закрывает соединения со всеми хранилищами
func (r *Repository) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
