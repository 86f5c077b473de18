package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/isoview/internal/adapters/nats"
	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/pkg/metrics"
)

// wsMessage is a widget interaction sent by a browser.
type wsMessage struct {
	Action  string   `json:"action"` // dragend | location | time | cutoffs | search | candidates | select | clear | refresh
	Lng     *float64 `json:"lng,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Time    string   `json:"time,omitempty"`
	Cutoffs string   `json:"cutoffs,omitempty"`
	Text    string   `json:"text,omitempty"`
	ID      string   `json:"id,omitempty"`
}

func (m wsMessage) coordinate() (domain.Coordinate, bool) {
	return coordinateRequest{Lng: m.Lng, Lat: m.Lat}.coordinate()
}

// wsReply answers one client message.
type wsReply struct {
	Action     string                  `json:"action"`
	Status     string                  `json:"status,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Applied    *bool                   `json:"applied,omitempty"`
	Candidates []domain.PlaceCandidate `json:"candidates,omitempty"`
	Place      *domain.PlaceCandidate  `json:"place,omitempty"`
}

// WebSocketHandler returns a handler that drives a browser map widget.
// On connect the client receives a create and a set_source_data event so it
// can draw the current state; afterwards every map command published on
// NATS is relayed as-is. Client messages are applied to the view controller.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger := slog.Default().With("remote_addr", remoteAddr)
		logger.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		setup := deps.Controller.MapSetup()
		now := time.Now().UTC()
		if err := writeJSON(domain.MapEvent{Command: domain.MapCommandCreate, Setup: &setup, At: now}); err != nil {
			return
		}
		_ = writeJSON(domain.MapEvent{
			Command:  domain.MapCommandSourceData,
			SourceID: setup.SourceID,
			Data:     deps.Controller.Isochrones(),
			At:       now,
		})

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.MapSubjectAll, func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				logger.Warn("ws map subscribe failed", "error", err)
			} else {
				defer func() { _ = sub.Unsubscribe() }()
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(wsReply{Error: "invalid JSON"})
				continue
			}
			_ = writeJSON(handleWSMessage(deps, m))
		}

		logger.Info("ws client disconnected")
	}
}

// handleWSMessage applies one client message to the controller.
func handleWSMessage(deps *Dependencies, m wsMessage) wsReply {
	ctx := context.Background()
	ctrl := deps.Controller
	reply := wsReply{Action: m.Action, Status: "ok"}
	fail := func(msg string) wsReply {
		return wsReply{Action: m.Action, Error: msg}
	}

	switch m.Action {
	case "dragend", "location":
		coord, ok := m.coordinate()
		if !ok {
			return fail("lng and lat are required")
		}
		var err error
		if m.Action == "dragend" {
			err = ctrl.MarkerDragEnd(coord)
		} else {
			err = ctrl.SetLocation(ctx, coord)
		}
		if err != nil {
			return fail(err.Error())
		}
	case "time":
		applied := ctrl.SetTime(m.Time)
		reply.Applied = &applied
	case "cutoffs":
		ctrl.SetCutoffs(m.Cutoffs)
	case "refresh":
		ctrl.Refresh()
	case "search":
		ctrl.Search(m.Text)
		reply.Status = "accepted"
	case "candidates":
		reply.Candidates = ctrl.Candidates()
	case "select":
		place, err := ctrl.SelectPlace(ctx, m.ID)
		if err != nil {
			return fail(err.Error())
		}
		reply.Place = &place
	case "clear":
		ctrl.ClearSelection(ctx)
	default:
		return fail("unknown action: " + m.Action)
	}
	return reply
}
