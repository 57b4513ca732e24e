package controller

import (
	"net/http"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/songquanpeng/contract-tester/model"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// GetRunEvents streams case events of a running run over a websocket. A run
// that already finished gets its final event and the socket is closed.
func GetRunEvents(c *gin.Context) {
	ctx := requestContext(c)
	runId := c.Param("id")

	// subscribe before reading the status so no event between the two is lost
	events, unsubscribe := hub.subscribe(runId)
	defer unsubscribe()

	run, err := model.GetRun(ctx, runId)
	if err != nil {
		abortRunLookup(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gmw.GetLogger(ctx).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	lg := gmw.GetLogger(ctx).With(zap.String("run_id", runId))
	if run.Finished() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(RunEvent{Type: EventFinished, RunId: runId, Data: run, Timestamp: time.Now().UnixMilli()}); err != nil {
			lg.Debug("failed to write final event", zap.Error(err))
		}
		closeSocket(conn)
		return
	}

	// drain client frames so close and pong control messages are processed
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				closeSocket(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				lg.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-clientGone:
			lg.Debug("websocket client disconnected")
			return
		}
	}
}

func closeSocket(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(wsWriteTimeout))
}
