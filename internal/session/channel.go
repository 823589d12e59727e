package session

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Channel is the control connection to one page instance.
type Channel interface {
	// EnablePageEvents subscribes to page lifecycle events.
	EnablePageEvents(ctx context.Context) error
	// Evaluate runs a script expression in the page.
	Evaluate(ctx context.Context, expression string) error
	// Close tears the connection down. Idempotent; a deliberate Close does
	// not fire the OnClose handler.
	Close() error
}

// ChannelHandlers receive inbound channel activity.
type ChannelHandlers struct {
	// OnNavigate fires for every frame navigation. topLevel is false for
	// nested frames (ads, embedded widgets).
	OnNavigate func(url string, topLevel bool)
	// OnClose fires when the peer closes the connection.
	OnClose func()
}

// Dialer opens a control channel to a page endpoint.
type Dialer func(ctx context.Context, wsURL string, h ChannelHandlers) (Channel, error)

// message is the debugger wire envelope.
type message struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type wsChannel struct {
	conn     net.Conn
	deadline time.Duration
	handlers ChannelHandlers

	nextID  int64
	writeMu sync.Mutex

	explicit atomic.Bool
	once     sync.Once
}

// DialChannel opens a websocket control channel speaking the debugger
// protocol and starts its read loop.
func DialChannel(deadline time.Duration) Dialer {
	return func(ctx context.Context, wsURL string, h ChannelHandlers) (Channel, error) {
		conn, _, _, err := ws.Dial(ctx, wsURL)
		if err != nil {
			return nil, err
		}
		c := &wsChannel{conn: conn, deadline: deadline, handlers: h}
		go c.readLoop()
		return c, nil
	}
}

func (c *wsChannel) send(method string, params interface{}) error {
	msg := message{ID: atomic.AddInt64(&c.nextID, 1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return err
		}
		msg.Params = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.deadline > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.deadline))
	}
	return wsutil.WriteClientText(c.conn, data)
}

func (c *wsChannel) EnablePageEvents(ctx context.Context) error {
	return c.send(string(cdproto.CommandPageEnable), nil)
}

func (c *wsChannel) Evaluate(ctx context.Context, expression string) error {
	return c.send(string(cdproto.CommandRuntimeEvaluate), &runtime.EvaluateParams{Expression: expression})
}

func (c *wsChannel) Close() error {
	c.explicit.Store(true)
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}

func (c *wsChannel) readLoop() {
	for {
		data, err := wsutil.ReadServerText(c.conn)
		if err != nil {
			if !c.explicit.Load() && c.handlers.OnClose != nil {
				c.handlers.OnClose()
			}
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Method != string(cdproto.EventPageFrameNavigated) {
			continue
		}
		var ev page.EventFrameNavigated
		if err := json.Unmarshal(msg.Params, &ev); err != nil || ev.Frame == nil {
			continue
		}
		if c.handlers.OnNavigate != nil {
			c.handlers.OnNavigate(ev.Frame.URL, ev.Frame.ParentID == "")
		}
	}
}
