package services

import (
	"github.com/poirotw66/risk-dice--risky-dice/internal/dice"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

// Broadcaster pushes roll updates out to connected clients. The websocket
// handler implements it; the engine only ever sees this interface. Global
// streak changes are not here on purpose: those travel over redis pub/sub so
// every server instance fans them out, not just the one that settled the roll.
type Broadcaster interface {
	BroadcastFrame(playerID, rollID string, frame dice.Frame)
	BroadcastRollStarted(playerID string, roll *models.Roll)
	BroadcastRollSettled(playerID string, result *models.RollResult)
}
