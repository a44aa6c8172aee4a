package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/tdsta/internal/cron"
	"github.com/flemzord/tdsta/internal/ingest"
	"github.com/flemzord/tdsta/internal/ingest/archive"
	"github.com/flemzord/tdsta/internal/telemetry"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds float64              `json:"uptime_seconds"`
	Corpus        ingest.Stats         `json:"corpus"`
	Topics        int                  `json:"topics"`
	Questions     *telemetry.Snapshot  `json:"questions,omitempty"`
	Archive       *archive.Stats       `json:"archive,omitempty"`
	NextRefresh   map[string]time.Time `json:"next_refresh,omitempty"`
}

// scheduled is implemented by refreshers that run on a schedule.
type scheduled interface {
	Scheduler() *cron.Scheduler
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: g.now().Sub(g.startedAt).Truncate(time.Second).Seconds(),
		}
		if g.ingestor != nil {
			resp.Corpus = g.ingestor.Corpus().Stats()
		}
		if g.holder != nil {
			resp.Topics = g.holder.Store().Len()
		}
		if g.metrics != nil {
			snap := g.metrics.Snapshot()
			resp.Questions = &snap
		}
		if g.archive != nil {
			if stats, err := g.archive.Stats(r.Context()); err == nil {
				resp.Archive = &stats
			} else {
				g.logger.Warn("archive stats unavailable", "error", err)
			}
		}
		if s, ok := g.refresher.(scheduled); ok && s.Scheduler() != nil {
			resp.NextRefresh = s.Scheduler().Next()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
