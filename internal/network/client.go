package network

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Tempo máximo para uma escrita na conexão.
	writeWait = 10 * time.Second

	// Tempo máximo aguardando um pong do cliente.
	pongWait = 60 * time.Second

	// Frequência dos pings. Precisa ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Limite de leitura por mensagem. Um evento de jogo legítimo tem
	// poucas centenas de bytes; acima disso é cliente mal comportado.
	maxMessageSize = 4096

	// Tamanho do buffer de saída de cada cliente.
	sendBufferSize = 256
)

// Client representa uma conexão viva do ponto de vista do servidor.
// Ele agrupa a conexão WebSocket e o canal de saída; a identidade do
// usuário por trás da conexão vive no registro de sessões, não aqui.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// Canal bufferizado de mensagens de saída. O buffer evita que o Hub
	// bloqueie atrás de um cliente lento.
	send chan Message

	closeOnce sync.Once
}

// Conn expõe a conexão subjacente, útil para logar o endereço remoto.
func (c *Client) Conn() net.Conn {
	return c.conn.UnderlyingConn()
}

// Send enfileira uma mensagem de saída sem bloquear a goroutine do Hub.
// Se o buffer do cliente estiver cheio a mensagem é descartada com um
// aviso: um cliente que não drena o socket não pode atrasar a partida.
func (c *Client) Send(msg Message) {
	select {
	case c.send <- msg:
	default:
		log.Printf("WARN: [network] send buffer full for %s, dropping %q", c.Conn().RemoteAddr(), msg.Type)
	}
}

// Close derruba a conexão. É usado pela política de "conexão mais nova
// vence" quando a mesma identidade autentica em outra conexão. O Hub
// percebe o encerramento pelo readLoop e faz a limpeza normal.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// Cada pong recebido renova o deadline de leitura, mantendo a
	// conexão viva enquanto o cliente responder.
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: [network] unexpected close from %s: %v", c.Conn().RemoteAddr(), err)
			}
			break
		}

		c.hub.incoming <- clientMessage{client: c, msg: msg}
	}
}

// writeLoop bombeia mensagens do canal send para a conexão e mantém o
// ping periódico. Uma goroutine por cliente.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// O canal send foi fechado pelo Hub: cliente desregistrado.
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
