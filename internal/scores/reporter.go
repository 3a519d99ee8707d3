// internal/scores/reporter.go
package scores

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/sprachduell/coordinator/internal/room"
)

// Record is the payload the application backend expects per player when a
// game completes. The coordinator computes nothing beyond the final tallies;
// cumulative leaderboard math stays on the backend side.
type Record struct {
	UserID        string `json:"user_id"`
	GameID        string `json:"game_id"`
	HighestScore  int    `json:"highest_score"`
	TotalPoints   int    `json:"total_points"`
	WinningStreak int    `json:"winning_streak"`
}

// Reporter POSTs final per-player scores to the application backend's
// score-persistence endpoint. Delivery is fire-and-forget: rooms tear down
// regardless, and failures are only logged.
type Reporter struct {
	rest     *resty.Client
	endpoint string
	log      *logrus.Logger
}

// NewReporter builds a reporter for the given endpoint. An empty endpoint
// returns nil, which the registry treats as reporting disabled.
func NewReporter(endpoint string, logger *logrus.Logger) *Reporter {
	if endpoint == "" {
		return nil
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &Reporter{rest: client, endpoint: endpoint, log: logger}
}

// Report implements room.ScoreReporter.
func (r *Reporter) Report(gameID string, final []room.FinalScore) {
	go r.send(gameID, final)
}

func (r *Reporter) send(gameID string, final []room.FinalScore) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fs := range final {
		streak := 0
		if fs.Winner {
			streak = 1
		}
		rec := Record{
			UserID:        fs.UserID,
			GameID:        gameID,
			HighestScore:  fs.Score,
			TotalPoints:   fs.Score,
			WinningStreak: streak,
		}
		resp, err := r.rest.R().
			SetContext(ctx).
			SetBody(rec).
			Post(r.endpoint)
		if err != nil {
			r.log.Warnf("scores: failed to report game %s for user %s: %v", gameID, fs.UserID, err)
			continue
		}
		if resp.IsError() {
			r.log.Warnf("scores: backend rejected report for game %s user %s: %s", gameID, fs.UserID, resp.Status())
		}
	}
}
