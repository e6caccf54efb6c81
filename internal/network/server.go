package network

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Server amarra o Hub a um servidor HTTP: faz o upgrade das conexões em
// /ws e expõe rotas auxiliares (health check) no mesmo listener.
type Server struct {
	hub *Hub
	mux *http.ServeMux
}

var upgrader = websocket.Upgrader{
	// O controle de origem fica no proxy reverso em produção; aqui
	// aceitamos qualquer origem para facilitar desenvolvimento.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewServer cria o servidor com o Hub associado. O handler é o ponto de
// injeção da lógica do jogo.
func NewServer(handler EventHandler) *Server {
	return &Server{
		hub: NewHub(handler),
		mux: http.NewServeMux(),
	}
}

// Hub expõe o hub para quem precisa agendar tarefas na goroutine dele.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handle registra uma rota HTTP extra (ex: /health) no mesmo listener.
// Precisa ser chamado antes de Listen.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// wsHandler promove a requisição HTTP para WebSocket e liga o cliente
// ao Hub.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: [network] websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		hub:  s.hub,
		send: make(chan Message, sendBufferSize),
	}

	client.hub.register <- client

	go client.writeLoop()
	go client.readLoop()
}

// Listen inicia a goroutine do Hub e o servidor HTTP. Bloqueia até o
// listener falhar.
func (s *Server) Listen(address string) error {
	go s.hub.Run()

	s.mux.HandleFunc("/ws", s.wsHandler)

	fmt.Printf("[network] listening on ws://%s/ws\n", address)

	return http.ListenAndServe(address, s.mux)
}
