package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	gameKeyPrefix = "velha:game:"
	gameIndexKey  = "velha:games"

	writeTimeout = 5 * time.Second
	retryPeriod  = 10 * time.Second

	// Limite de registros aguardando retry. Acima disso os mais antigos
	// são descartados com log; memória não cresce sem limite durante uma
	// queda longa do Redis.
	maxPending = 1024
)

// RedisArchiver escreve registros de partidas no Redis através de um
// ator próprio: o Archive só enfileira, e o loop Run escreve, guardando
// em memória e reenviando o que falhar. Assim uma queda do Redis degrada
// para "escritas atrasadas", nunca para "partidas travadas".
type RedisArchiver struct {
	client *redis.Client
	queue  chan *Record
	quit   chan struct{}
}

func NewRedisArchiver(addr string) *RedisArchiver {
	return &RedisArchiver{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		queue:  make(chan *Record, 256),
		quit:   make(chan struct{}),
	}
}

// Archive enfileira o registro sem bloquear. Se até a fila local estiver
// cheia, o registro é descartado com log; perder um registro histórico é
// melhor que atrasar a goroutine do Hub.
func (a *RedisArchiver) Archive(rec *Record) {
	select {
	case a.queue <- rec:
	default:
		log.Printf("WARN: [store] archive queue full, dropping record for session %s", rec.SessionID)
	}
}

// Run é o loop do ator. Deve rodar em goroutine própria.
func (a *RedisArchiver) Run() {
	log.Println("[store] redis archiver started")
	var pending []*Record

	ticker := time.NewTicker(retryPeriod)
	defer ticker.Stop()

	for {
		select {
		case rec := <-a.queue:
			if err := a.write(rec); err != nil {
				log.Printf("WARN: [store] write failed for session %s, queued for retry: %v", rec.SessionID, err)
				pending = a.hold(pending, rec)
			}

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			remaining := pending[:0]
			for _, rec := range pending {
				if err := a.write(rec); err != nil {
					remaining = append(remaining, rec)
				}
			}
			if flushed := len(pending) - len(remaining); flushed > 0 {
				log.Printf("[store] flushed %d pending records to redis", flushed)
			}
			pending = remaining

		case <-a.quit:
			for _, rec := range pending {
				a.write(rec)
			}
			a.client.Close()
			return
		}
	}
}

func (a *RedisArchiver) hold(pending []*Record, rec *Record) []*Record {
	if len(pending) >= maxPending {
		log.Printf("WARN: [store] retry buffer full, dropping oldest record %s", pending[0].SessionID)
		pending = pending[1:]
	}
	return append(pending, rec)
}

func (a *RedisArchiver) write(rec *Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, gameKeyPrefix+rec.SessionID, data, 0)
	pipe.RPush(ctx, gameIndexKey, rec.SessionID)
	_, err = pipe.Exec(ctx)
	return err
}

// Ping serve de health check para o agregador do Consul.
func (a *RedisArchiver) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.client.Ping(ctx).Err()
}

// Close encerra o loop e fecha a conexão.
func (a *RedisArchiver) Close() {
	close(a.quit)
}
