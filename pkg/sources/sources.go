// Package sources lists the games a user owns on each platform. Adapters are
// read-only: they only talk to the platform's API and never touch storage.
package sources

import (
	"context"
	"time"

	"github.com/ludotheque/ludotheque/pkg/metrics"
	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

var (
	ErrUnsupportedSource  = errors.New("source can't be scanned")
	ErrMissingCredentials = errors.New("source credentials are missing")
)

// Candidate is one owned game as the platform reports it.
type Candidate struct {
	Source   models.Source `json:"source"`
	SourceID string        `json:"source_id"`
	Title    string        `json:"title"`
	Platform string        `json:"platform,omitempty"`
	CoverURL string        `json:"cover_url,omitempty"`
}

func (c Candidate) Identity() models.Identity {
	return models.Identity{Source: c.Source, SourceID: c.SourceID}
}

// Credentials are decrypted just before a scan and dropped right after.
// Never log them.
type Credentials struct {
	AccountID string
	APIKey    string
}

type Config struct {
	SteamAPIKey              string
	SteamBaseURL             string
	XboxBaseURL              string
	RetroAchievementsBaseURL string
	Timeout                  time.Duration
}

type Registry struct {
	steam *Steam
	xbox  *Xbox
	ra    *RetroAchievements
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		steam: NewSteam(cfg.SteamBaseURL, cfg.SteamAPIKey, cfg.Timeout),
		xbox:  NewXbox(cfg.XboxBaseURL, cfg.Timeout),
		ra:    NewRetroAchievements(cfg.RetroAchievementsBaseURL, cfg.Timeout),
	}
}

// Scan lists the games owned by the account behind creds.
func (r *Registry) Scan(ctx context.Context, source models.Source, creds Credentials) ([]Candidate, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"source": source.String()})

	var (
		cands []Candidate
		err   error
	)
	switch source {
	case models.SourceSteam:
		cands, err = r.steam.Scan(ctx, creds)
	case models.SourceXbox:
		cands, err = r.xbox.Scan(ctx, creds)
	case models.SourceRetroAchievements:
		cands, err = r.ra.Scan(ctx, creds)
	case models.SourceCatalog, models.SourceManual:
		return nil, errors.Wrap(ErrUnsupportedSource, source.String())
	default:
		return nil, errors.Wrap(ErrUnsupportedSource, source.String())
	}

	if err != nil {
		metrics.SourceScans.WithLabelValues(source.String(), "error").Inc()
		log.Err(err).Warn("source scan failed", logger.Data{"has_api_key": creds.APIKey != ""})
		return nil, err
	}

	metrics.SourceScans.WithLabelValues(source.String(), "success").Inc()
	log.Info("source scanned", logger.Data{"candidates": len(cands)})
	return cands, nil
}

// dedupe drops repeated identities, keeping the first occurrence and the
// upstream order.
func dedupe(cands []Candidate) []Candidate {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		key := c.Identity().String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
