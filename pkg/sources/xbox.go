package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
)

// Xbox reads title history through the OpenXBL API, authenticated with the
// user's own OpenXBL key.
type Xbox struct {
	baseURL string
	api     *upstream.Client
}

func NewXbox(baseURL string, timeout time.Duration) *Xbox {
	return &Xbox{
		baseURL: strings.TrimRight(baseURL, "/"),
		api:     upstream.NewClient("xbox", upstream.Options{Timeout: timeout}),
	}
}

type xboxTitleHistoryResponse struct {
	Titles []struct {
		TitleID      string   `json:"titleId"`
		Name         string   `json:"name"`
		DisplayImage string   `json:"displayImage"`
		Type         string   `json:"type"`
		Devices      []string `json:"devices"`
	} `json:"titles"`
}

func (x *Xbox) Scan(ctx context.Context, creds Credentials) ([]Candidate, error) {
	if creds.APIKey == "" {
		return nil, errors.Wrap(ErrMissingCredentials, "xbox")
	}

	path := "/player/titleHistory"
	if xuid := strings.TrimSpace(creds.AccountID); xuid != "" {
		path += "/" + url.PathEscape(xuid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+path, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Authorization", creds.APIKey)

	out := xboxTitleHistoryResponse{}
	if err := x.api.Do(req, &out); err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(out.Titles))
	for _, t := range out.Titles {
		if t.TitleID == "" || (t.Type != "" && t.Type != "Game") {
			continue
		}
		cands = append(cands, Candidate{
			Source:   models.SourceXbox,
			SourceID: models.XboxSourceIDPrefix + t.TitleID,
			Title:    strings.TrimSpace(t.Name),
			Platform: xboxPlatform(t.Devices),
			CoverURL: t.DisplayImage,
		})
	}
	return dedupe(cands), nil
}

// xboxPlatform picks the newest console the title was played on.
func xboxPlatform(devices []string) string {
	order := []struct{ device, name string }{
		{"XboxSeries", "Xbox Series X|S"},
		{"XboxOne", "Xbox One"},
		{"Xbox360", "Xbox 360"},
		{"PC", "PC"},
	}
	for _, o := range order {
		for _, d := range devices {
			if strings.EqualFold(d, o.device) {
				return o.name
			}
		}
	}
	return "Xbox"
}
