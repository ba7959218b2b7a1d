package realtime

import (
	"context"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/events"
)

// TournamentRoom and GameRoom name the rooms clients subscribe to.
func TournamentRoom(tournamentID int) string { return fmt.Sprintf("tournament:%d", tournamentID) }
func GameRoom(gameID int) string             { return fmt.Sprintf("game:%d", gameID) }

type hubPublisher struct {
	hub *Hub
}

// NewHubPublisher adapts the hub into an events.Publisher so domain events
// fan out to websocket rooms alongside the other sinks.
func NewHubPublisher(hub *Hub) events.Publisher {
	return &hubPublisher{hub: hub}
}

func (p *hubPublisher) Publish(_ context.Context, e events.Event) error {
	msg := Message{Type: string(e.Type), Payload: e.Payload}

	switch payload := e.Payload.(type) {
	case events.MatchCompletedPayload:
		p.hub.BroadcastToRoom(TournamentRoom(payload.TournamentID), msg)
	case events.TournamentCompletedPayload:
		p.hub.BroadcastToRoom(TournamentRoom(payload.TournamentID), msg)
	case events.TournamentCancelledPayload:
		p.hub.BroadcastToRoom(TournamentRoom(payload.TournamentID), msg)
	case events.QueueMatchedPayload:
		p.hub.BroadcastToRoom(GameRoom(payload.GameID), msg)
	case events.LevelUpPayload:
		p.hub.BroadcastToRoom(GameRoom(payload.GameID), msg)
	}
	return nil
}
