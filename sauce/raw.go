package sauce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Raw is a single provider match as returned by the SauceNao JSON API.
type Raw struct {
	Header RawHeader `json:"header"`
	Data   RawData   `json:"data"`
}

type RawHeader struct {
	Similarity Number `json:"similarity"`
	Thumbnail  string `json:"thumbnail"`
	IndexID    Number `json:"index_id"`
	IndexName  string `json:"index_name"`
}

type RawData struct {
	ExtURLs    []string `json:"ext_urls"`
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	Part       Text     `json:"part"`
	EstTime    string   `json:"est_time"`
	Year       Text     `json:"year"`
	MemberName string   `json:"member_name"`
	MemberID   Number   `json:"member_id"`
	AuthorName string   `json:"author_name"`
	AuthorURL  string   `json:"author_url"`
	Creator    Names    `json:"creator"`
	Characters string   `json:"characters"`
	Material   string   `json:"material"`
	EngName    string   `json:"eng_name"`
	JpName     string   `json:"jp_name"`
	AniDBAid   Number   `json:"anidb_aid"`
	MALID      Number   `json:"mal_id"`
	AnilistID  Number   `json:"anilist_id"`
}

// Decode parses a stored or freshly received match payload.
func Decode(payload []byte) (Raw, error) {
	var raw Raw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Raw{}, fmt.Errorf("failed to decode sauce payload: %w", err)
	}
	return raw, nil
}

// Number accepts JSON numbers, numeric strings and null. SauceNao is not
// consistent about which one it sends for the same field.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n Number) Int() int { return int(n) }

func (n Number) Float() float64 { return float64(n) }

// Text accepts JSON strings and numbers.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// Names accepts either a single string or a list of strings.
type Names []string

func (n *Names) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = nil
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*n = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*n = nil
		return nil
	}
	*n = Names{s}
	return nil
}
