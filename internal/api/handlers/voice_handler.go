package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/internal/credentials"
	"github.com/zenbanez/docuvoice-ai/internal/services"
	"github.com/zenbanez/docuvoice-ai/internal/voice"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsMaxMessage = 1 << 20
)

type VoiceHandler struct {
	voice    services.VoiceService
	keys     *credentials.KeyStore
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewVoiceHandler(voice services.VoiceService, keys *credentials.KeyStore, log logrus.FieldLogger) *VoiceHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &VoiceHandler{
		voice: voice,
		keys:  keys,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type       string `json:"type"` // start | stop
	SampleRate int    `json:"sample_rate"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	if w == nil || w.c == nil {
		return errors.New("websocket not connected")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// Stream bridges one browser to a voice session about a document.
func (h *VoiceHandler) Stream(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	docID := c.Param("id")

	wc := &wsConn{}
	mic := newRemoteMic()
	spk := newRemoteSpeaker(wc.writeJSON)
	devices := voice.NewDevices(
		func() (voice.Microphone, error) { return mic, nil },
		func() (voice.Output, error) { return spk, nil },
	)
	log := h.log.WithFields(logrus.Fields{"user_id": userID, "document_id": docID})
	obs := &wsObserver{wc: wc, log: log}

	var gate voice.CredentialGate
	if h.keys != nil {
		gate = h.keys.Gate(func(context.Context) error {
			return wc.writeJSON(gin.H{"type": "select_key"})
		})
	}

	link, err := h.voice.Attach(c.Request.Context(), userID, docID, devices, gate, obs)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		_ = link.Close()
		_ = devices.Close()
		return
	}
	wc.c = conn

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer func() {
		cancel()
		_ = link.Close()
		_ = devices.Close()
		_ = conn.Close()
		log.Info("voice websocket closed")
	}()

	go func() {
		t := time.NewTicker(wsPingPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	log.Info("voice websocket open")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if mt == websocket.BinaryMessage {
			samples, err := voice.DecodeFloat32LE(data)
			if err == nil {
				err = mic.push(samples)
			}
			if err != nil {
				obs.sendError(err.Error())
			}
			continue
		}

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			obs.sendError("invalid json")
			continue
		}

		switch msg.Type {
		case "start":
			if msg.SampleRate > 0 {
				if err := mic.setRate(msg.SampleRate); err != nil {
					obs.sendError("invalid sample_rate")
					continue
				}
			}
			go func() {
				err := link.Start(ctx)
				if errors.Is(err, voice.ErrSessionActive) {
					obs.sendError("voice session already active")
				}
			}()
		case "stop":
			link.Stop()
		default:
			obs.sendError("unknown message type")
		}
	}
}

// wsObserver forwards controller events to the browser.
type wsObserver struct {
	wc  *wsConn
	log logrus.FieldLogger
}

func (o *wsObserver) send(v any) {
	if err := o.wc.writeJSON(v); err != nil {
		o.log.WithError(err).Debug("websocket write failed")
	}
}

func (o *wsObserver) sendError(msg string) {
	o.send(gin.H{"type": "error", "message": msg})
}

func (o *wsObserver) OnState(state voice.State, message string) {
	o.send(gin.H{"type": "state", "state": state.String(), "message": message})
	if state == voice.StateError {
		o.sendError(message)
	}
}

func (o *wsObserver) OnTranscript(input, output string) {
	o.send(gin.H{"type": "transcript", "input": input, "output": output})
}

func (o *wsObserver) OnTurn(turn voice.Turn) {
	o.send(gin.H{"type": "turn", "user": turn.User, "ai": turn.AI})
}
