package network

import (
	"log"
)

// clientMessage empacota uma mensagem junto com o cliente que a enviou,
// para o Hub repassar os dois ao EventHandler.
type clientMessage struct {
	client *Client
	msg    Message
}

// Hub mantém o conjunto de clientes ativos e serializa todos os eventos
// do servidor em uma única goroutine: conexões, desconexões, mensagens e
// tarefas agendadas (timers de reconexão, varreduras, callbacks do NATS).
// É a fronteira de exclusão mútua de todo o estado de matchmaking e de
// partidas: nenhum outro lugar do código precisa de lock.
type Hub struct {
	// Clientes registrados. Acessado SOMENTE pela goroutine do Hub.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	incoming   chan clientMessage

	// Tarefas agendadas de fora (time.AfterFunc, assinaturas NATS...)
	// que precisam rodar dentro da fronteira de serialização.
	tasks chan func()

	quit chan struct{}

	handler EventHandler
}

// NewHub cria e inicializa um novo Hub com o handler de jogo injetado.
func NewHub(handler EventHandler) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage),
		tasks:      make(chan func(), 64),
		quit:       make(chan struct{}),
		handler:    handler,
	}
}

// Schedule entrega uma função para ser executada pela goroutine do Hub.
// É assim que timers de tolerância e eventos externos voltam para dentro
// da fronteira de serialização sem corrida.
func (h *Hub) Schedule(task func()) {
	select {
	case h.tasks <- task:
	case <-h.quit:
		// Hub parado, a tarefa não tem mais onde rodar.
	}
}

// Stop encerra o loop do Hub.
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.handler.OnConnect(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Avisa a lógica do jogo antes de fechar o canal de
				// saída, para que o handler ainda possa notificar o
				// oponente sem tocar em um canal fechado.
				h.handler.OnDisconnect(client)
				close(client.send)
			}

		case clientMsg := <-h.incoming:
			h.handler.OnMessage(clientMsg.client, clientMsg.msg)

		case task := <-h.tasks:
			task()

		case <-h.quit:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			log.Println("[network] hub stopped")
			return
		}
	}
}
