package presence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/nats-io/nats.go"
)

// StatusEvent é o que circula nos assuntos de presença: quem mudou de
// estado e em qual nó isso aconteceu.
type StatusEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // "online" | "offline"
	Node   string `json:"node,omitempty"`
}

// GameEvent anuncia o desfecho de uma partida para serviços
// interessados (perfis, histórico) sem acoplar nada ao servidor de jogo.
type GameEvent struct {
	SessionID string `json:"sessionId"`
	Result    string `json:"result"`
	Node      string `json:"node,omitempty"`
}

// Notifier publica presença e desfechos de partida em assuntos NATS.
// Todos os métodos são nil-safe: com NATS desabilitado na configuração o
// resto do servidor chama um Notifier nil sem se preocupar.
type Notifier struct {
	nc     *nats.Conn
	prefix string
	node   string
}

// Connect abre a conexão com o NATS. A reconexão fica por conta da
// própria biblioteca, sem limite de tentativas.
func Connect(url, prefix string) (*Notifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("velha-server"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("presence: connect to nats: %w", err)
	}

	node, _ := os.Hostname()
	log.Printf("[presence] connected to nats at %s", url)
	return &Notifier{nc: nc, prefix: prefix, node: node}, nil
}

// PublishStatus anuncia online/offline de um usuário.
func (n *Notifier) PublishStatus(userID, status string) {
	if n == nil {
		return
	}
	n.publish(n.prefix+".presence."+userID, StatusEvent{
		UserID: userID,
		Status: status,
		Node:   n.node,
	})
}

// PublishGameEnded anuncia o desfecho de uma partida.
func (n *Notifier) PublishGameEnded(sessionID, result string) {
	if n == nil {
		return
	}
	n.publish(n.prefix+".games", GameEvent{
		SessionID: sessionID,
		Result:    result,
		Node:      n.node,
	})
}

// SubscribeStatus entrega eventos de presença vindos de OUTROS nós. Os
// publicados por este mesmo processo são filtrados pelo campo Node. O
// handler roda na goroutine do NATS; quem assina é responsável por
// reentrar na fronteira de serialização (hub.Schedule).
func (n *Notifier) SubscribeStatus(handler func(StatusEvent)) error {
	if n == nil {
		return nil
	}
	_, err := n.nc.Subscribe(n.prefix+".presence.>", func(msg *nats.Msg) {
		var evt StatusEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("WARN: [presence] bad status event on %s: %v", msg.Subject, err)
			return
		}
		if evt.Node == n.node {
			return
		}
		handler(evt)
	})
	return err
}

func (n *Notifier) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := n.nc.Publish(subject, data); err != nil {
		log.Printf("WARN: [presence] publish to %s failed: %v", subject, err)
	}
}

// Ping serve de health check para o agregador do Consul.
func (n *Notifier) Ping() error {
	if n == nil {
		return nil
	}
	if !n.nc.IsConnected() {
		return fmt.Errorf("nats connection is %s", n.nc.Status())
	}
	return nil
}

// Close drena e fecha a conexão.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.nc.Drain()
}
