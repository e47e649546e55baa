package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
)

const (
	raMediaURL = "https://media.retroachievements.org"
	raPageSize = 500
	// raMaxPages bounds a scan of a pathological account.
	raMaxPages = 40
)

type RetroAchievements struct {
	baseURL string
	api     *upstream.Client
}

func NewRetroAchievements(baseURL string, timeout time.Duration) *RetroAchievements {
	return &RetroAchievements{
		baseURL: strings.TrimRight(baseURL, "/"),
		api:     upstream.NewClient("retroachievements", upstream.Options{Timeout: timeout}),
	}
}

type raCompletionProgressResponse struct {
	Count   int `json:"Count"`
	Total   int `json:"Total"`
	Results []struct {
		GameID      int64  `json:"GameID"`
		Title       string `json:"Title"`
		ImageIcon   string `json:"ImageIcon"`
		ConsoleName string `json:"ConsoleName"`
	} `json:"Results"`
}

// Scan lists every game the user has started, paging through the completion
// progress endpoint.
func (ra *RetroAchievements) Scan(ctx context.Context, creds Credentials) ([]Candidate, error) {
	user := strings.TrimSpace(creds.AccountID)
	if user == "" || creds.APIKey == "" {
		return nil, errors.Wrap(ErrMissingCredentials, "retroachievements")
	}

	var cands []Candidate
	for page := 0; page < raMaxPages; page++ {
		q := url.Values{}
		q.Set("u", user)
		q.Set("y", creds.APIKey)
		q.Set("c", strconv.Itoa(raPageSize))
		q.Set("o", strconv.Itoa(page*raPageSize))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ra.baseURL+"/API_GetUserCompletionProgress.php?"+q.Encode(), nil)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		req.Header.Set("Accept", "application/json")

		out := raCompletionProgressResponse{}
		if err := ra.api.Do(req, &out); err != nil {
			return nil, err
		}

		for _, g := range out.Results {
			if g.GameID <= 0 {
				continue
			}
			c := Candidate{
				Source:   models.SourceRetroAchievements,
				SourceID: strconv.FormatInt(g.GameID, 10),
				Title:    strings.TrimSpace(g.Title),
				Platform: g.ConsoleName,
			}
			if g.ImageIcon != "" {
				c.CoverURL = raMediaURL + g.ImageIcon
			}
			cands = append(cands, c)
		}

		if len(out.Results) < raPageSize || (page+1)*raPageSize >= out.Total {
			break
		}
	}
	return dedupe(cands), nil
}
