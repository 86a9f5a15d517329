// Package saucenao is a client for the SauceNao reverse image search API.
package saucenao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saucebot/sauce"

	"github.com/go-resty/resty/v2"
)

const (
	searchEndpoint = "https://saucenao.com/search.php"
	// probeImage is searched when testing whether an API key works.
	probeImage = "https://saucenao.com/images/static/banner.gif"

	// AccountEnhanced is the account_type of a paid key.
	AccountEnhanced = 2
)

var (
	ErrShortLimitReached = errors.New("saucenao: short search limit reached")
	ErrDailyLimitReached = errors.New("saucenao: daily search limit reached")
	ErrInvalidKey        = errors.New("saucenao: invalid or rejected api key")
	ErrInvalidImage      = errors.New("saucenao: invalid image")
	ErrUnavailable       = errors.New("saucenao: service unavailable")
)

// Response is a successful search.
type Response struct {
	// Header is the provider's response header as received.
	Header json.RawMessage
	// Results holds matches at or above the similarity threshold, best first.
	Results        []sauce.Source
	ShortRemaining int
	LongRemaining  int
	AccountType    int
}

// Account describes the key used for a probe search.
type Account struct {
	Type       int
	ShortLimit int
	LongLimit  int
}

func (a *Account) Enhanced() bool { return a.Type == AccountEnhanced }

type header struct {
	Status         sauce.Number `json:"status"`
	Message        string       `json:"message"`
	AccountType    sauce.Number `json:"account_type"`
	ShortLimit     sauce.Number `json:"short_limit"`
	LongLimit      sauce.Number `json:"long_limit"`
	ShortRemaining sauce.Number `json:"short_remaining"`
	LongRemaining  sauce.Number `json:"long_remaining"`
}

type envelope struct {
	Header  json.RawMessage   `json:"header"`
	Results []json.RawMessage `json:"results"`
}

type Client struct {
	http     *resty.Client
	endpoint string
}

// NewClient builds a client on top of httpClient. A nil httpClient gets a
// default one with a 30 second timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client := resty.NewWithClient(httpClient).
		SetHeader("User-Agent", "saucebot/1.0").
		SetHeader("Accept", "application/json")

	return &Client{http: client, endpoint: searchEndpoint}
}

// Search looks up the image at imageURL. Matches below minSimilarity
// (a percentage) are dropped.
func (c *Client) Search(ctx context.Context, imageURL, apiKey string, minSimilarity float64) (*Response, error) {
	env, hdr, err := c.search(ctx, imageURL, apiKey, minSimilarity)
	if err != nil {
		return nil, err
	}

	res := &Response{
		Header:         env.Header,
		ShortRemaining: hdr.ShortRemaining.Int(),
		LongRemaining:  hdr.LongRemaining.Int(),
		AccountType:    hdr.AccountType.Int(),
	}
	for i, item := range env.Results {
		src, err := sauce.New(item)
		if err != nil {
			return nil, fmt.Errorf("%w: result %d: %w", ErrUnavailable, i, err)
		}
		if src.Info().Similarity < minSimilarity {
			continue
		}
		res.Results = append(res.Results, src)
	}
	return res, nil
}

// Probe runs a test search with apiKey and reports the key's account.
func (c *Client) Probe(ctx context.Context, apiKey string) (*Account, error) {
	_, hdr, err := c.search(ctx, probeImage, apiKey, 0)
	if err != nil {
		return nil, err
	}
	return &Account{
		Type:       hdr.AccountType.Int(),
		ShortLimit: hdr.ShortLimit.Int(),
		LongLimit:  hdr.LongLimit.Int(),
	}, nil
}

func (c *Client) search(ctx context.Context, imageURL, apiKey string, minSimilarity float64) (*envelope, *header, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"output_type": "2",
			"db":          "999",
			"numres":      "6",
			"url":         imageURL,
		})
	if apiKey != "" {
		req.SetQueryParam("api_key", apiKey)
	}
	if minSimilarity > 0 {
		req.SetQueryParam("minsim", strconv.FormatFloat(minSimilarity, 'f', -1, 64))
	}

	resp, err := req.Get(c.endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var env envelope
	var hdr header
	var hdrErr error
	if jsonErr := json.Unmarshal(resp.Body(), &env); jsonErr == nil && len(env.Header) > 0 {
		hdrErr = json.Unmarshal(env.Header, &hdr)
	}
	// Error statuses classify on the status code alone when the header is unreadable.
	if hdrErr != nil && resp.StatusCode() == http.StatusOK {
		return nil, nil, fmt.Errorf("%w: malformed response header: %w", ErrUnavailable, hdrErr)
	}

	if err := classify(resp.StatusCode(), hdr); err != nil {
		return nil, nil, err
	}
	if len(env.Header) == 0 {
		return nil, nil, fmt.Errorf("%w: malformed response body", ErrUnavailable)
	}
	return &env, &hdr, nil
}

// classify maps a response status and header onto the error taxonomy.
func classify(status int, hdr header) error {
	msg := strings.ToLower(hdr.Message)
	switch {
	case status == http.StatusTooManyRequests && strings.Contains(msg, "daily"):
		return fmt.Errorf("%w: %s", ErrDailyLimitReached, hdr.Message)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrShortLimitReached, hdr.Message)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidKey, hdr.Message)
	case status != http.StatusOK:
		return fmt.Errorf("%w: http status %d", ErrUnavailable, status)
	}

	if hdr.Status.Int() == 0 {
		return nil
	}
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "invalid key"):
		return fmt.Errorf("%w: %s", ErrInvalidKey, hdr.Message)
	case hdr.Status.Int() < 0 && (strings.Contains(msg, "image") || strings.Contains(msg, "file")):
		return fmt.Errorf("%w: %s", ErrInvalidImage, hdr.Message)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, hdr.Status.Int(), hdr.Message)
	}
}
