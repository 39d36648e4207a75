package ws

import (
	"context"
	"errors"
	"sync"
)

type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	userID string
	convID string
	out    chan []byte
	once   sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	userID, convID string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		userID: userID,
		convID: convID,
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) UserID() string         { return c.userID }
func (c *RuntimeClient) ConversationID() string { return c.convID }

func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	}
}

// Close cancels the client context and closes the socket. The out channel
// is never closed: Send may be racing from a broadcast goroutine, and a
// send on a closed channel panics even inside a select. Cancellation ends
// the write loop instead.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
