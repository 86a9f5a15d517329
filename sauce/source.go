package sauce

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Source is one identified origin of an image. The set of implementations is
// closed: GenericSource, VideoSource, MangaSource, AnimeSource and BooruSource.
// Values are never modified after construction.
type Source interface {
	Variant() Variant
	Info() *Common
	isSource()
}

// Common holds the fields every variant carries.
type Common struct {
	Title      string
	URL        string
	URLs       []string
	Thumbnail  string
	AuthorName string
	AuthorURL  string
	Index      int
	IndexName  string
	Similarity float64

	payload []byte
}

func (c *Common) Info() *Common { return c }

func (c *Common) isSource() {}

// Payload returns a copy of the provider payload the source was built from.
func (c *Common) Payload() []byte {
	out := make([]byte, len(c.payload))
	copy(out, c.payload)
	return out
}

type GenericSource struct {
	Common
}

func (*GenericSource) Variant() Variant { return VariantGeneric }

type VideoSource struct {
	Common
	Episode   string
	Timestamp string
	Year      string
}

func (*VideoSource) Variant() Variant { return VariantVideo }

type MangaSource struct {
	Common
	Chapter string
}

func (*MangaSource) Variant() Variant { return VariantManga }

// AnimeSource is a video source from an anime index, with the external ids
// needed to cross-check a preview provider's match.
type AnimeSource struct {
	VideoSource
	AniDBID   int
	AnilistID int
	MALID     int
	Adult     bool
}

func (*AnimeSource) Variant() Variant { return VariantAnime }

type BooruSource struct {
	Common
	Characters []string
	Material   []string
}

func (*BooruSource) Variant() Variant { return VariantBooru }

// New builds a Source from a fresh provider payload, picking the variant from
// the payload's index id.
func New(payload []byte) (Source, error) {
	raw, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	return build(Classify(raw.Header.IndexID.Int()), raw, payload), nil
}

// Rebuild reconstructs a Source from a cached payload and its stored variant tag.
func Rebuild(v Variant, payload []byte) (Source, error) {
	if _, err := ParseVariant(string(v)); err != nil {
		return nil, err
	}
	raw, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	return build(v, raw, payload), nil
}

func build(v Variant, raw Raw, payload []byte) Source {
	d := raw.Data
	switch v {
	case VariantVideo:
		return &VideoSource{
			Common:    newCommon(raw, payload, d.Source, d.Title, d.EngName, d.JpName),
			Episode:   string(d.Part),
			Timestamp: d.EstTime,
			Year:      string(d.Year),
		}
	case VariantAnime:
		return &AnimeSource{
			VideoSource: VideoSource{
				Common:    newCommon(raw, payload, d.Source, d.Title, d.EngName, d.JpName),
				Episode:   string(d.Part),
				Timestamp: d.EstTime,
				Year:      string(d.Year),
			},
			AniDBID:   idFrom(d.AniDBAid, d.ExtURLs, anidbURL),
			AnilistID: idFrom(d.AnilistID, d.ExtURLs, anilistURL),
			MALID:     idFrom(d.MALID, d.ExtURLs, malURL),
			Adult:     raw.Header.IndexID.Int() == IndexHAnime,
		}
	case VariantManga:
		return &MangaSource{
			Common:  newCommon(raw, payload, d.Source, d.Title, d.EngName, d.JpName),
			Chapter: string(d.Part),
		}
	case VariantBooru:
		return &BooruSource{
			Common:     newCommon(raw, payload, d.Title, d.Material, d.Characters),
			Characters: splitSet(d.Characters),
			Material:   splitSet(d.Material),
		}
	default:
		return &GenericSource{
			Common: newCommon(raw, payload, d.Title, d.Source, d.Material, d.EngName, d.JpName),
		}
	}
}

func newCommon(raw Raw, payload []byte, titles ...string) Common {
	d := raw.Data
	c := Common{
		Title:      firstNonEmpty(titles...),
		URLs:       append([]string(nil), d.ExtURLs...),
		Thumbnail:  raw.Header.Thumbnail,
		AuthorName: firstNonEmpty(d.MemberName, d.AuthorName, strings.Join(d.Creator, ", ")),
		AuthorURL:  d.AuthorURL,
		Index:      raw.Header.IndexID.Int(),
		IndexName:  raw.Header.IndexName,
		Similarity: raw.Header.Similarity.Float(),
		payload:    append([]byte(nil), payload...),
	}
	if len(d.ExtURLs) > 0 {
		c.URL = d.ExtURLs[0]
	} else if strings.HasPrefix(d.Source, "http://") || strings.HasPrefix(d.Source, "https://") {
		c.URL = d.Source
	}
	if c.AuthorURL == "" && d.MemberID.Int() > 0 && (c.Index == IndexPixiv || c.Index == IndexPixivHistorical) {
		c.AuthorURL = fmt.Sprintf("https://www.pixiv.net/users/%d", d.MemberID.Int())
	}
	return c
}

var (
	anidbURL   = regexp.MustCompile(`anidb\.net/(?:perl-bin/animedb\.pl\?show=anime&aid=|anime/|a)(\d+)`)
	anilistURL = regexp.MustCompile(`anilist\.co/anime/(\d+)`)
	malURL     = regexp.MustCompile(`myanimelist\.net/anime/(\d+)`)
)

func idFrom(n Number, urls []string, re *regexp.Regexp) int {
	if id := n.Int(); id > 0 {
		return id
	}
	for _, u := range urls {
		if m := re.FindStringSubmatch(u); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				return id
			}
		}
	}
	return 0
}

// splitSet splits a comma or newline separated tag list, dropping blanks and
// duplicates while keeping first-seen order.
func splitSet(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
