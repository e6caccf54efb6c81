package session

import (
	"log"
	"time"

	"velha/internal/session/message"
)

// Registry é o registro de conexões: mapeia transportes vivos e
// identidades autenticadas para as entradas PlayerConn. Assim como todo
// o resto do estado compartilhado, só é tocado pela goroutine do Hub.
type Registry struct {
	conns  map[message.Sender]*PlayerConn
	byUser map[string]*PlayerConn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[message.Sender]*PlayerConn),
		byUser: make(map[string]*PlayerConn),
	}
}

// Register cria a entrada para um transporte recém-conectado, ainda sem
// identidade.
func (r *Registry) Register(s message.Sender) *PlayerConn {
	pc := &PlayerConn{sender: s, State: StateUnauthenticated}
	r.conns[s] = pc
	return pc
}

// Get resolve o transporte para sua entrada, ou nil.
func (r *Registry) Get(s message.Sender) *PlayerConn {
	return r.conns[s]
}

// Lookup devolve a entrada viva (ou em tolerância) de uma identidade.
func (r *Registry) Lookup(userID string) *PlayerConn {
	return r.byUser[userID]
}

// Authenticate amarra a identidade à conexão de pc. Se a identidade já
// estiver presa a outra conexão, vale a política "conexão mais nova
// vence": a entrada existente é religada ao transporte novo (preservando
// estado de fila/partida e cancelando o timer de tolerância) e o
// transporte antigo é devolvido para o chamador derrubar.
//
// Retorna a entrada final da identidade e o transporte despejado, se
// houver.
func (r *Registry) Authenticate(pc *PlayerConn, userID string) (*PlayerConn, message.Sender) {
	existing := r.byUser[userID]
	if existing == nil {
		pc.UserID = userID
		pc.State = StateLobby
		r.byUser[userID] = pc
		return pc, nil
	}

	evicted := existing.sender
	if evicted != nil {
		delete(r.conns, evicted)
	}

	// Religa a entrada existente ao transporte novo e descarta a entrada
	// não autenticada que tinha sido criada no Register.
	r.StopGrace(existing)
	existing.sender = pc.sender
	delete(r.conns, pc.sender)
	r.conns[existing.sender] = existing

	if evicted != nil {
		log.Printf("[registry] user %s re-authenticated on a new connection, evicting the old one", userID)
	}
	return existing, evicted
}

// Remove desliga o transporte da sua entrada quando ele cai. A entrada é
// devolvida para o gateway decidir o destino: cancelar fila, abrir a
// janela de tolerância ou simplesmente descartar.
func (r *Registry) Remove(s message.Sender) *PlayerConn {
	pc := r.conns[s]
	if pc == nil {
		return nil
	}
	delete(r.conns, s)
	pc.sender = nil
	return pc
}

// Unbind apaga a identidade do índice por usuário, se esta entrada ainda
// for a dona dele.
func (r *Registry) Unbind(pc *PlayerConn) {
	if pc.UserID != "" && r.byUser[pc.UserID] == pc {
		delete(r.byUser, pc.UserID)
	}
}

// StartGrace arma o timer de tolerância da entrada. Qualquer timer
// anterior é cancelado antes: no máximo um por usuário.
func (r *Registry) StartGrace(pc *PlayerConn, d time.Duration, fire func()) {
	r.StopGrace(pc)
	pc.grace = time.AfterFunc(d, fire)
}

// StopGrace cancela o timer de tolerância, se armado.
func (r *Registry) StopGrace(pc *PlayerConn) {
	if pc.grace != nil {
		pc.grace.Stop()
		pc.grace = nil
	}
}

// Connections devolve quantos transportes estão vivos. Só para logs.
func (r *Registry) Connections() int {
	return len(r.conns)
}
