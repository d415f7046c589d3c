// Package transport adapts the text and whiteboard engines to a
// bidirectional websocket connection: outbound, a Conn implements both
// engines' Emitter interfaces by framing each call as a JSON envelope;
// inbound, its Dispatch loop decodes envelopes and calls the matching
// Handle* method on whichever engine owns that event name.
package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/text"
	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/whiteboard"
)

// envelope is the wire shape every socket event is framed in.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn wraps a websocket connection. Writes are serialized with a mutex
// since gorilla/websocket forbids concurrent writers on the same
// connection; reads are single-threaded by construction (only Dispatch
// reads).
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	wmu    sync.Mutex
}

// Option configures a Conn at construction time.
type Option func(*Conn)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

func NewConn(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{ws: ws, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conn) send(eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal outbound event", "type", eventType, "error", err)
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteJSON(envelope{Type: eventType, Payload: raw}); err != nil {
		c.logger.Error("write outbound event", "type", eventType, "error", err)
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// --- text.Emitter ---

type addRegionOut struct {
	Text      string `json:"text"`
	Position  int    `json:"position"`
	LastModID int    `json:"last_mod_id"`
}

func (c *Conn) EmitAddRegion(text string, position, lastModID int) {
	c.send("add_region", addRegionOut{Text: text, Position: position, LastModID: lastModID})
}

type removeRegionOut struct {
	Start     int `json:"start"`
	End       int `json:"end"`
	LastModID int `json:"last_mod_id"`
}

func (c *Conn) EmitRemoveRegion(start, end, lastModID int) {
	c.send("remove_region", removeRegionOut{Start: start, End: end, LastModID: lastModID})
}

type addPropertyOut struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Property  string  `json:"property"`
	Flag      *string `json:"flag"`
	LastModID int     `json:"last_mod_id"`
}

func (c *Conn) EmitAddProperty(start, end int, property string, flag *string, lastModID int) {
	c.send("add_property", addPropertyOut{Start: start, End: end, Property: property, Flag: flag, LastModID: lastModID})
}

type removePropertyOut struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Property  string `json:"property"`
	LastModID int    `json:"last_mod_id"`
}

func (c *Conn) EmitRemoveProperty(start, end int, property string, lastModID int) {
	c.send("remove_property", removePropertyOut{Start: start, End: end, Property: property, LastModID: lastModID})
}

type cursorMovedOut struct {
	Position  int `json:"position"`
	LastModID int `json:"last_mod_id"`
}

func (c *Conn) EmitCursorMoved(position, lastModID int) {
	c.send("cursor_moved", cursorMovedOut{Position: position, LastModID: lastModID})
}

type updateLastModIDOut struct {
	LastModID int `json:"last_mod_id"`
}

func (c *Conn) EmitUpdateLastModID(lastModID int) {
	c.send("update_last_mod_id", updateLastModIDOut{LastModID: lastModID})
}

// --- whiteboard.Emitter ---

type drawOut struct {
	ID string `json:"id"`
	D  string `json:"d"`
}

func (c *Conn) EmitDraw(id, d string) {
	c.send("draw", drawOut{ID: id, D: d})
}

type removeOut struct {
	ID string `json:"id"`
}

func (c *Conn) EmitRemove(id string) {
	c.send("remove", removeOut{ID: id})
}

type editOut struct {
	ID string `json:"id"`
	D  string `json:"d"`
}

func (c *Conn) EmitEdit(id, d string) {
	c.send("edit", editOut{ID: id, D: d})
}

type groupOut struct {
	GroupID     string   `json:"group_id"`
	ChildrenIDs []string `json:"children_ids"`
}

func (c *Conn) EmitGroup(groupID string, childrenIDs []string) {
	c.send("group", groupOut{GroupID: groupID, ChildrenIDs: childrenIDs})
}

type ungroupOut struct {
	GroupID string `json:"group_id"`
}

func (c *Conn) EmitUngroup(groupID string) {
	c.send("ungroup", ungroupOut{GroupID: groupID})
}

// --- inbound dispatch ---

// Engines bundles the two local replicas a Dispatch loop feeds inbound
// events into.
type Engines struct {
	Text  *text.Engine
	Board *whiteboard.Engine
}

// Dispatch reads envelopes off the connection until it errors (typically
// on disconnect) and routes each to the matching engine handler.
func (c *Conn) Dispatch(engines Engines) error {
	for {
		var env envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return fmt.Errorf("read inbound event: %w", err)
		}
		c.route(env, engines)
	}
}

func (c *Conn) route(env envelope, engines Engines) {
	switch env.Type {
	case "connected":
		var p struct {
			UserID  int    `json:"userid"`
			Content string `json:"content"`
			ModID   int    `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Text.HandleConnected(p.UserID, p.Content, p.ModID)

	case "user_disconnected":
		var p struct {
			UserID int `json:"userid"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Text.HandleUserDisconnected(p.UserID)

	case "ping":
		engines.Text.HandlePing()

	case "add_region":
		var p struct {
			Text     string `json:"text"`
			Position int    `json:"position"`
			UserID   int    `json:"userid"`
			ModID    int    `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		c.logErr("add_region", engines.Text.HandleAddRegion(p.Text, p.Position, p.UserID, p.ModID))

	case "remove_region":
		var p struct {
			Start  int `json:"start"`
			End    int `json:"end"`
			UserID int `json:"userid"`
			ModID  int `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		c.logErr("remove_region", engines.Text.HandleRemoveRegion(p.Start, p.End, p.UserID, p.ModID))

	case "add_property":
		var p struct {
			Start    int     `json:"start"`
			End      int     `json:"end"`
			Property string  `json:"property"`
			Flag     *string `json:"flag"`
			UserID   int     `json:"userid"`
			ModID    int     `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		c.logErr("add_property", engines.Text.HandleAddProperty(p.Start, p.End, p.Property, p.Flag, p.UserID, p.ModID))

	case "remove_property":
		var p struct {
			Start    int    `json:"start"`
			End      int    `json:"end"`
			Property string `json:"property"`
			UserID   int    `json:"userid"`
			ModID    int    `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		c.logErr("remove_property", engines.Text.HandleRemoveProperty(p.Start, p.End, p.Property, p.UserID, p.ModID))

	case "cursor_moved":
		var p struct {
			Position int    `json:"position"`
			UserID   int    `json:"userid"`
			Username string `json:"username"`
			ModID    int    `json:"mod_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		c.logErr("cursor_moved", engines.Text.HandleCursorMoved(p.Position, p.UserID, p.Username, p.ModID))

	case "draw":
		var p struct {
			ID string `json:"id"`
			D  string `json:"d"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Board.HandleDraw(p.ID, p.D)

	case "remove":
		var p struct {
			ID string `json:"id"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Board.HandleRemove(p.ID)

	case "edit":
		var p struct {
			ID string `json:"id"`
			D  string `json:"d"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Board.HandleEdit(p.ID, p.D)

	case "group":
		var p struct {
			GroupID     string   `json:"group_id"`
			ChildrenIDs []string `json:"children_ids"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Board.HandleGroup(p.GroupID, p.ChildrenIDs)

	case "ungroup":
		var p struct {
			GroupID string `json:"group_id"`
		}
		if !c.decode(env, &p) {
			return
		}
		engines.Board.HandleUngroup(p.GroupID)

	default:
		c.logger.Warn("unknown inbound event", "type", env.Type)
	}
}

func (c *Conn) decode(env envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		c.logger.Error("decode inbound event", "type", env.Type, "error", err)
		return false
	}
	return true
}

func (c *Conn) logErr(eventType string, err error) {
	if err != nil {
		c.logger.Error("apply inbound event", "type", eventType, "error", err)
	}
}
