package api

import (
	"context"

	"goelicit/domain/design"
	"goelicit/internal/optimizer"
)

// SSEEventBroadcaster turns optimizer rounds into session events
type SSEEventBroadcaster struct {
	sseHub *SSEHub
}

// NewSSEEventBroadcaster creates a broadcaster over hub
func NewSSEEventBroadcaster(sseHub *SSEHub) *SSEEventBroadcaster {
	return &SSEEventBroadcaster{sseHub: sseHub}
}

// Observe returns ctx with a round observer streaming to sessionID. An empty
// session leaves ctx untouched.
func (seb *SSEEventBroadcaster) Observe(ctx context.Context, sessionID string) context.Context {
	if seb == nil || sessionID == "" {
		return ctx
	}
	return optimizer.WithRoundObserver(ctx, func(sel design.Selected, total int) {
		seb.sseHub.Broadcast(DesignEvent{
			SessionID:   sessionID,
			EventType:   EventRound,
			Round:       sel.Round,
			Total:       total,
			Progress:    float64(sel.Round) / float64(total),
			Determinant: sel.Determinant,
			LogDetGain:  sel.LogDetGain,
		})
	})
}

// Finished announces the stored battery
func (seb *SSEEventBroadcaster) Finished(sessionID string, battery *design.Battery) {
	if seb == nil || sessionID == "" {
		return
	}
	seb.sseHub.Broadcast(DesignEvent{
		SessionID: sessionID,
		EventType: EventBattery,
		BatteryID: battery.ID.String(),
		Total:     battery.Len(),
		Progress:  1,
	})
}

// Failed announces that planning stopped with err
func (seb *SSEEventBroadcaster) Failed(sessionID string, err error) {
	if seb == nil || sessionID == "" {
		return
	}
	seb.sseHub.Broadcast(DesignEvent{
		SessionID: sessionID,
		EventType: EventFailed,
		Message:   err.Error(),
	})
}
