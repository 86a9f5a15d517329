package tracemoe

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "frameCount": 745506,
  "error": "",
  "result": [
    {"anilist": {"id": 9253, "idMal": 9253, "title": {"romaji": "Steins;Gate", "english": "Steins;Gate"}, "isAdult": false},
     "filename": "Steins;Gate - 03.mkv", "episode": 3, "from": 300.1, "to": 302.4, "similarity": 0.97,
     "video": "https://media.trace.moe/video/9253/clip.mp4?t=301", "image": "https://media.trace.moe/image/9253/frame.jpg"},
    {"anilist": 21034, "filename": "other.mp4", "episode": "OVA", "from": 1, "to": 2, "similarity": 0.81,
     "video": "", "image": ""}
  ]
}`

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	return NewClient(&http.Client{Transport: transport}, "trace-key"), transport
}

func TestSearch(t *testing.T) {
	client, transport := newMockedClient(t)

	var gotKey, gotURL string
	transport.RegisterResponder(http.MethodGet, searchEndpoint,
		func(req *http.Request) (*http.Response, error) {
			gotKey = req.Header.Get("x-trace-key")
			gotURL = req.URL.Query().Get("url")
			return httpmock.NewStringResponse(http.StatusOK, searchBody), nil
		})

	matches, err := client.Search(context.Background(), "https://x/a.png")
	require.NoError(t, err)
	assert.Equal(t, "trace-key", gotKey)
	assert.Equal(t, "https://x/a.png", gotURL)

	require.Len(t, matches, 2)
	assert.Equal(t, Anilist{ID: 9253, MALID: 9253, Title: "Steins;Gate"}, matches[0].Anilist)
	assert.Equal(t, "3", string(matches[0].Episode))
	assert.InDelta(t, 0.97, matches[0].Similarity, 1e-9)
	assert.Equal(t, Anilist{ID: 21034}, matches[1].Anilist)
	assert.Equal(t, "OVA", string(matches[1].Episode))
}

func TestSearchErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		status int
		body   string
	}{
		"api error":   {http.StatusBadRequest, `{"error": "Failed to fetch image"}`},
		"quota":       {http.StatusPaymentRequired, `{"error": "Search quota depleted"}`},
		"not json":    {http.StatusServiceUnavailable, `<html></html>`},
		"error in ok": {http.StatusOK, `{"error": "something", "result": []}`},
	} {
		t.Run(name, func(t *testing.T) {
			client, transport := newMockedClient(t)
			transport.RegisterResponder(http.MethodGet, searchEndpoint, httpmock.NewStringResponder(tc.status, tc.body))

			_, err := client.Search(context.Background(), "https://x/a.png")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestPreview(t *testing.T) {
	client, transport := newMockedClient(t)

	var size string
	transport.RegisterResponder(http.MethodGet, "https://media.trace.moe/video/9253/clip.mp4",
		func(req *http.Request) (*http.Response, error) {
			size = req.URL.Query().Get("size")
			return httpmock.NewBytesResponse(http.StatusOK, []byte("mp4-bytes")), nil
		})

	data, err := client.Preview(context.Background(), Match{Video: "https://media.trace.moe/video/9253/clip.mp4?t=301"})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), data)
	assert.Equal(t, "m", size)

	data, err = client.Preview(context.Background(), Match{})
	require.NoError(t, err)
	assert.Nil(t, data)
}
