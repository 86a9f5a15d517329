// Package tracemoe finds anime scenes on trace.moe and downloads short video
// previews of them.
package tracemoe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"saucebot/sauce"

	"github.com/go-resty/resty/v2"
)

const searchEndpoint = "https://api.trace.moe/search"

var ErrUnavailable = errors.New("tracemoe: service unavailable")

// Anilist identifies the series of a match. trace.moe sends either a bare
// anilist id or, with anilistInfo set, an object.
type Anilist struct {
	ID    int
	MALID int
	Adult bool
	Title string
}

func (a *Anilist) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Anilist{}
		return nil
	}
	if b[0] != '{' {
		var id int
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*a = Anilist{ID: id}
		return nil
	}

	var info struct {
		ID      int  `json:"id"`
		IDMal   int  `json:"idMal"`
		IsAdult bool `json:"isAdult"`
		Title   struct {
			Romaji  string `json:"romaji"`
			English string `json:"english"`
		} `json:"title"`
	}
	if err := json.Unmarshal(b, &info); err != nil {
		return err
	}
	*a = Anilist{ID: info.ID, MALID: info.IDMal, Adult: info.IsAdult, Title: info.Title.Romaji}
	if a.Title == "" {
		a.Title = info.Title.English
	}
	return nil
}

// Match is one candidate scene, best first in a search response.
type Match struct {
	Anilist    Anilist    `json:"anilist"`
	Filename   string     `json:"filename"`
	Episode    sauce.Text `json:"episode"`
	From       float64    `json:"from"`
	To         float64    `json:"to"`
	Similarity float64    `json:"similarity"`
	Video      string     `json:"video"`
	Image      string     `json:"image"`
}

type searchResponse struct {
	Error  string  `json:"error"`
	Result []Match `json:"result"`
}

type Client struct {
	http     *resty.Client
	endpoint string
}

// NewClient builds a client on top of httpClient. apiKey may be empty.
func NewClient(httpClient *http.Client, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client := resty.NewWithClient(httpClient).SetHeader("User-Agent", "saucebot/1.0")
	if apiKey != "" {
		client.SetHeader("x-trace-key", apiKey)
	}
	return &Client{http: client, endpoint: searchEndpoint}
}

// Search returns the candidate scenes for the image at imageURL.
func (c *Client) Search(ctx context.Context, imageURL string) ([]Match, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("anilistInfo", "").
		SetQueryParam("url", imageURL).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: http status %d: %w", ErrUnavailable, resp.StatusCode(), err)
	}
	if resp.IsError() || body.Error != "" {
		return nil, fmt.Errorf("%w: http status %d: %s", ErrUnavailable, resp.StatusCode(), body.Error)
	}
	return body.Result, nil
}

// Preview downloads the medium size video clip of a match. It returns nil
// when the match has no clip.
func (c *Client) Preview(ctx context.Context, m Match) ([]byte, error) {
	if m.Video == "" {
		return nil, nil
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("size", "m").
		Get(m.Video)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: preview http status %d", ErrUnavailable, resp.StatusCode())
	}
	return resp.Body(), nil
}
