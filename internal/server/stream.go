package server

import (
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/pwakit/pwakit/internal/install"
	"github.com/pwakit/pwakit/internal/update"
)

// streamedEvents are the hub events forwarded to websocket clients.
var streamedEvents = []string{
	update.EventPrompt,
	update.EventPromptDismissed,
	update.EventPostponed,
	update.EventBanner,
	install.EventPrompt,
	install.EventAccepted,
	install.EventDismissed,
}

var upgrader = websocket.Upgrader{
	// The dev server is same-machine tooling; cross-origin pages on
	// localhost are expected (vite, storybook).
	CheckOrigin: func(*http.Request) bool { return true },
}

// envelope is one streamed event frame.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// handleEvents upgrades to a websocket and forwards hub events until the
// client disconnects. Slow clients drop frames rather than block emitters.
func (s *Server) handleEvents(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	frames := make(chan envelope, 16)
	for _, name := range streamedEvents {
		id := s.hub.On(name, func(payload any) {
			select {
			case frames <- envelope{Event: name, Payload: payload}:
			default:
				// Drop frame if the client cannot keep up
			}
		})
		defer s.hub.Off(name, id)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case frame := <-frames:
			if err := conn.WriteJSON(frame); err != nil {
				log.WithError(err).Debug("event stream write failed")
				return nil
			}
		}
	}
}

// readBody drains the request body.
func readBody(c echo.Context) ([]byte, error) {
	defer func() { _ = c.Request().Body.Close() }()
	return io.ReadAll(c.Request().Body)
}
