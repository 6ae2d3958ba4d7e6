package network

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// BatchHandler decides whether a spawn batch is accepted. The returned ack's
// Seq is overwritten with the batch's.
type BatchHandler func(ctx context.Context, batch SpawnBatch) BatchAck

// Server is the editor side of the spawn protocol. It acknowledges every
// batch with the result of its handler.
type Server struct {
	logger   *log.Logger
	handle   BatchHandler
	upgrader websocket.Upgrader
	seq      atomic.Uint64
}

func NewServer(handle BatchHandler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "network ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		logger: logger,
		handle: handle,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx := r.Context()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Printf("read from %s: %v", r.RemoteAddr, err)
				}
				return
			}
			env, err := Decode(data)
			if err != nil {
				s.logger.Printf("decode message from %s: %v", r.RemoteAddr, err)
				continue
			}

			switch env.Type {
			case MessageHello:
				var hello Hello
				if err := json.Unmarshal(env.Payload, &hello); err == nil {
					s.logger.Printf("run %s connected from %s", hello.RunID, r.RemoteAddr)
				}
			case MessageSpawnBatch:
				var batch SpawnBatch
				ack := BatchAck{Seq: env.Seq}
				if err := json.Unmarshal(env.Payload, &batch); err != nil {
					ack.Message = "malformed batch"
				} else {
					ack = s.handle(ctx, batch)
					ack.Seq = batch.Seq
				}
				if err := s.reply(conn, ack); err != nil {
					s.logger.Printf("ack batch %d: %v", ack.Seq, err)
					return
				}
			default:
				s.logger.Printf("unexpected %s from %s", env.Type, r.RemoteAddr)
			}
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, ack BatchAck) error {
	data, err := prepare(MessageBatchAck, s.seq.Add(1), ack)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
