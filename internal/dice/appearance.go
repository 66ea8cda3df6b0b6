package dice

import (
	"strconv"

	"github.com/poirotw66/risk-dice--risky-dice/internal/geom"
	"github.com/poirotw66/risk-dice--risky-dice/internal/models"
)

const (
	colorDefault = "#22c55e" // green
	colorPending = "#94a3b8" // slate
	colorSafe    = "#facc15" // gold
	colorBust    = "#ef4444" // red
)

const bustLabel = "\U0001F480" // skull

// Appearance maps an outcome onto the twenty face views. Every face wears its
// 1-20 number in green; only the designated face deviates, by outcome. A
// designated index outside 0-19 yields the all-default board, used before the
// first roll.
func Appearance(outcome models.Outcome, designated int) [geom.FaceCount]models.FaceView {
	var views [geom.FaceCount]models.FaceView
	for i := range views {
		views[i] = models.FaceView{Label: strconv.Itoa(i + 1), Color: colorDefault}
	}

	if designated < 0 || designated >= geom.FaceCount {
		return views
	}

	switch outcome {
	case models.OutcomeSafe:
		views[designated] = models.FaceView{
			Label:       strconv.Itoa(designated + 1),
			Color:       colorSafe,
			Highlighted: true,
		}
	case models.OutcomeBust:
		views[designated] = models.FaceView{
			Label:       bustLabel,
			Color:       colorBust,
			Highlighted: true,
		}
	default:
		// Outcome still pending: a neutral placeholder marks the face to watch.
		views[designated] = models.FaceView{
			Label:       "?",
			Color:       colorPending,
			Highlighted: true,
		}
	}
	return views
}
