package network

import (
	"encoding/json"
)

// Message é o envelope padrão para toda a comunicação em tempo real.
// O campo Type carrega o nome do evento (ex: "find-opponent", "new-move")
// e o Payload fica em JSON bruto para ser decodificado por quem conhece
// o formato daquele evento específico.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage monta um envelope serializando o payload recebido.
// Um payload que não serializa é bug de programação, não entrada de
// cliente, então o envelope sai com payload vazio em vez de propagar erro.
func NewMessage(eventType string, payload any) Message {
	if payload == nil {
		return Message{Type: eventType}
	}
	raw, _ := json.Marshal(payload)
	return Message{Type: eventType, Payload: raw}
}
