// velha/cmd/client/main.go
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"velha/internal/auth"
	"velha/internal/game"
	"velha/internal/network"
	"velha/internal/session/message"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

func main() {
	addr := pflag.String("addr", "localhost:8080", "endereço do servidor (host:porta)")
	token := pflag.String("token", "", "token JWT emitido pelo serviço de autenticação")
	user := pflag.String("user", "", "gera um token local para este usuário (requer --secret)")
	secret := pflag.String("secret", "", "segredo HS256 compartilhado com o servidor")
	pflag.Parse()

	if *token == "" && *user != "" {
		// Modo de desenvolvimento: assina o próprio token com o segredo
		// do servidor, dispensando o serviço de autenticação.
		signed, err := auth.Sign(*secret, *user, time.Hour)
		if err != nil {
			log.Fatalf("Erro ao assinar token local: %v", err)
		}
		*token = signed
	}
	if *token == "" {
		log.Fatal("Informe --token, ou --user junto com --secret.")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: strings.TrimSpace(*addr), Path: "/ws"}
	log.Printf("Conectando a %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Falha ao conectar: %v", err)
	}
	defer conn.Close()

	if err := sendEvent(conn, message.EventAuth, map[string]string{"token": *token}); err != nil {
		log.Fatalf("Erro ao enviar autenticação: %v", err)
	}

	done := make(chan struct{})
	go readLoop(conn, done)

	go inputLoop(conn)

	select {
	case <-done:
		log.Println("Desconectado do servidor.")
	case <-interrupt:
		log.Println("Interrupção recebida, fechando conexão.")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func sendEvent(conn *websocket.Conn, eventType string, payload any) error {
	return conn.WriteJSON(network.NewMessage(eventType, payload))
}

func inputLoop(conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	printHelp()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		var err error
		switch cmd {
		case "find":
			pref := ""
			if len(args) > 0 {
				pref = args[0]
			}
			err = sendEvent(conn, message.EventFindOpponent, map[string]string{"sidePreference": pref})
		case "cancel":
			err = sendEvent(conn, message.EventCancelMatchmaking, nil)
		case "move":
			if len(args) != 1 {
				fmt.Println("Uso: move <célula 0-8>")
				continue
			}
			cell, convErr := strconv.Atoi(args[0])
			if convErr != nil {
				fmt.Println("Célula inválida:", args[0])
				continue
			}
			err = sendEvent(conn, message.EventNewMove, map[string]any{
				"sessionId": currentSessionID,
				"cellIndex": cell,
			})
		case "forfeit":
			err = sendEvent(conn, message.EventForfeitGame, map[string]string{
				"sessionId": currentSessionID,
			})
		case "help":
			printHelp()
		case "quit", "exit":
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		default:
			fmt.Println("Comando desconhecido:", cmd)
			printHelp()
		}
		if err != nil {
			log.Printf("Erro ao enviar mensagem: %v", err)
		}
	}
}

// currentSessionID e currentBoard são atualizados pelo readLoop; o
// inputLoop só os lê ao montar comandos digitados depois do
// found-opponent, então a corrida teórica não aparece no uso interativo.
var (
	currentSessionID string
	currentBoard     game.Board
)

func readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg network.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("\nErro de leitura: %v", err)
			}
			return
		}
		printServerMessage(&msg)
	}
}

func printServerMessage(msg *network.Message) {
	switch msg.Type {
	case message.EventAuthOK:
		var p message.AuthOKPayload
		json.Unmarshal(msg.Payload, &p)
		fmt.Printf("\n[OK] Autenticado como %s.\n> ", p.UserID)

	case message.EventFoundOpponent:
		var p message.FoundOpponentPayload
		json.Unmarshal(msg.Payload, &p)
		currentSessionID = p.SessionID
		currentBoard = game.Board{}
		fmt.Printf("\n[PARTIDA] Oponente encontrado: %s. Você joga com %s.\n", p.OpponentID, p.AssignedSymbol)
		printBoard(currentBoard)
		if p.AssignedSymbol == game.SymbolX {
			fmt.Print("Sua vez! (move <0-8>)\n> ")
		} else {
			fmt.Print("Aguardando o oponente...\n> ")
		}

	case message.EventMoveRegistered:
		var p message.MoveRegisteredPayload
		json.Unmarshal(msg.Payload, &p)
		if p.CellIndex >= 0 && p.CellIndex < len(currentBoard) {
			currentBoard[p.CellIndex] = p.Symbol
		}
		fmt.Printf("\n[JOGADA] %s marcou a célula %d.\n", p.Symbol, p.CellIndex)
		printBoard(currentBoard)
		fmt.Printf("Vez de: %s\n> ", p.NextTurn)

	case message.EventGameEnded:
		var p message.GameEndedPayload
		json.Unmarshal(msg.Payload, &p)
		currentSessionID = ""
		fmt.Printf("\n[FIM] Partida encerrada: %s", p.Outcome.Result)
		if p.Outcome.Winner != "" {
			fmt.Printf(" (vencedor: %s)", p.Outcome.Winner)
		}
		fmt.Print("\n> ")

	case message.EventMatchmakingCancelled:
		fmt.Print("\n[FILA] Busca cancelada.\n> ")

	case message.EventMatchmakingError:
		var p message.ErrorPayload
		json.Unmarshal(msg.Payload, &p)
		fmt.Printf("\n[ERRO-FILA] %s: %s\n> ", p.Code, p.Message)

	case message.EventError:
		var p message.ErrorPayload
		json.Unmarshal(msg.Payload, &p)
		fmt.Printf("\n[ERRO] %s: %s\n> ", p.Code, p.Message)

	case message.EventStatusUpdate:
		var p message.StatusUpdatePayload
		json.Unmarshal(msg.Payload, &p)
		fmt.Printf("\n[STATUS] %s está %s.\n> ", p.UserID, p.Status)

	case message.EventBannerUpdate:
		var p message.BannerUpdatePayload
		json.Unmarshal(msg.Payload, &p)
		currentSessionID = p.SessionID
		currentBoard = p.Board
		fmt.Printf("\n[RECONEXÃO] Partida em andamento contra %s. Você joga com %s.\n", p.OpponentID, p.Symbol)
		printBoard(p.Board)
		fmt.Printf("Vez de: %s\n> ", p.Turn)

	default:
		fmt.Printf("\n[%s] %s\n> ", msg.Type, string(msg.Payload))
	}
}

func printBoard(b game.Board) {
	render := func(i int) string {
		if b[i] == "" {
			return strconv.Itoa(i)
		}
		return string(b[i])
	}
	for row := 0; row < 3; row++ {
		i := row * 3
		fmt.Printf(" %s | %s | %s\n", render(i), render(i+1), render(i+2))
		if row < 2 {
			fmt.Println("---+---+---")
		}
	}
}

func printHelp() {
	fmt.Println("Comandos: find [X|O|any] | cancel | move <0-8> | forfeit | quit")
	fmt.Print("> ")
}
