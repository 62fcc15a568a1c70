package services

import (
	"github.com/robfig/cron/v3"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
	"go.uber.org/zap"
)

// StartOfferSweeper runs the stale-offer expiry job every minute. The sweep
// only releases vendors held by dead offers; it never auto-dispatches the
// next candidate.
func StartOfferSweeper(dispatcher *Dispatcher) *cron.Cron {
	c := cron.New()
	c.AddFunc("* * * * *", func() {
		expired, err := dispatcher.ExpireStaleRequests()
		if err != nil {
			utils.Logger.Error("offer sweep failed", zap.Error(err))
			return
		}
		if expired > 0 {
			utils.Logger.Info("expired stale booking offers", zap.Int("count", expired))
		}
	})
	c.Start()
	return c
}
