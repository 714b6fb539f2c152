package main

// Notifier delivers engine output to players. Both calls are
// fire-and-forget: the engine never learns whether a message arrived,
// and delivery failures must not affect game state.
type Notifier interface {
	SendPrivate(playerID, text string)
	SendGroup(groupID, text string)
}

// hubNotifier fans engine messages out over the WebSocket hub. Group
// ids resolve to a running session's roster or a waiting room's
// member list.
type hubNotifier struct {
	hub      *Hub
	sessions *SessionRegistry
	rooms    *RoomRegistry
}

func (n *hubNotifier) SendPrivate(playerID, text string) {
	n.hub.sendToUser(playerID, WSEvent{Type: "private", Text: text})
}

func (n *hubNotifier) SendGroup(groupID, text string) {
	ev := WSEvent{Type: "group", Text: text}
	if s, ok := n.sessions.Get(groupID); ok {
		for _, p := range s.Players {
			n.hub.sendToUser(p.UserID, ev)
		}
		return
	}
	if r, ok := n.rooms.Get(groupID); ok {
		for _, m := range r.Members {
			n.hub.sendToUser(m.UserID, ev)
		}
	}
}
