package network

// EventHandler é a interface que conecta a camada de rede com a lógica do
// jogo. Todos os callbacks são invocados pela goroutine do Hub, um de cada
// vez, então a implementação pode mutar estado compartilhado sem locks.
type EventHandler interface {
	// OnConnect é chamado quando um novo cliente completa o upgrade.
	OnConnect(c *Client)

	// OnDisconnect é chamado quando um cliente se desconecta.
	OnDisconnect(c *Client)

	// OnMessage é chamado para cada mensagem recebida de um cliente.
	OnMessage(c *Client, msg Message)
}
