package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ludotheque/ludotheque/pkg/models"
	"github.com/ludotheque/ludotheque/pkg/upstream"
	"github.com/pkg/errors"
)

const steamCoverURL = "https://cdn.cloudflare.steamstatic.com/steam/apps/%d/library_600x900.jpg"

var steamID64Pattern = regexp.MustCompile(`^7656\d{13}$`)

// ErrSteamProfileNotFound is returned when a vanity name doesn't resolve.
var ErrSteamProfileNotFound = errors.New("steam profile not found")

type Steam struct {
	baseURL string
	apiKey  string
	api     *upstream.Client
}

func NewSteam(baseURL, apiKey string, timeout time.Duration) *Steam {
	return &Steam{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		api:     upstream.NewClient("steam", upstream.Options{Timeout: timeout}),
	}
}

type steamVanityResponse struct {
	Response struct {
		SteamID string `json:"steamid"`
		Success int    `json:"success"`
	} `json:"response"`
}

type steamOwnedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID int64  `json:"appid"`
			Name  string `json:"name"`
		} `json:"games"`
	} `json:"response"`
}

// key prefers the user's own key over the server-wide one.
func (s *Steam) key(creds Credentials) string {
	if creds.APIKey != "" {
		return creds.APIKey
	}
	return s.apiKey
}

// ResolveVanity turns a custom profile name into a SteamID64.
func (s *Steam) ResolveVanity(ctx context.Context, key, name string) (string, error) {
	q := url.Values{}
	q.Set("key", key)
	q.Set("vanityurl", name)

	out := steamVanityResponse{}
	if err := s.get(ctx, "/ISteamUser/ResolveVanityURL/v1/", q, &out); err != nil {
		return "", err
	}
	if out.Response.Success != 1 || out.Response.SteamID == "" {
		return "", errors.Wrap(ErrSteamProfileNotFound, name)
	}
	return out.Response.SteamID, nil
}

// Scan lists the games in the account's Steam library. A private profile
// lists nothing.
func (s *Steam) Scan(ctx context.Context, creds Credentials) ([]Candidate, error) {
	key := s.key(creds)
	account := strings.TrimSpace(creds.AccountID)
	if key == "" || account == "" {
		return nil, errors.Wrap(ErrMissingCredentials, "steam")
	}

	steamID := account
	if !steamID64Pattern.MatchString(account) {
		resolved, err := s.ResolveVanity(ctx, key, account)
		if err != nil {
			return nil, err
		}
		steamID = resolved
	}

	q := url.Values{}
	q.Set("key", key)
	q.Set("steamid", steamID)
	q.Set("include_appinfo", "1")
	q.Set("include_played_free_games", "1")
	q.Set("format", "json")

	out := steamOwnedGamesResponse{}
	if err := s.get(ctx, "/IPlayerService/GetOwnedGames/v1/", q, &out); err != nil {
		return nil, err
	}

	cands := make([]Candidate, 0, len(out.Response.Games))
	for _, g := range out.Response.Games {
		if g.AppID <= 0 {
			continue
		}
		cands = append(cands, Candidate{
			Source:   models.SourceSteam,
			SourceID: strconv.FormatInt(g.AppID, 10),
			Title:    strings.TrimSpace(g.Name),
			Platform: "PC",
			CoverURL: fmt.Sprintf(steamCoverURL, g.AppID),
		})
	}
	return dedupe(cands), nil
}

func (s *Steam) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	return s.api.Do(req, out)
}
