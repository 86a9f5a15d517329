package sauce

import "fmt"

// Variant tags which concrete Source a result decodes into. The tag is persisted
// next to cached payloads, so the string values must stay stable.
type Variant string

const (
	VariantGeneric Variant = "generic"
	VariantVideo   Variant = "video"
	VariantManga   Variant = "manga"
	VariantAnime   Variant = "anime"
	VariantBooru   Variant = "booru"
)

// SauceNao index ids that select a non-generic variant.
const (
	IndexPixiv           = 5
	IndexPixivHistorical = 6
	IndexDanbooru        = 9
	IndexYandere         = 12
	IndexAnime           = 21
	IndexHAnime          = 22
	IndexMovies          = 23
	IndexShows           = 24
	IndexGelbooru        = 25
	IndexKonachan        = 26
	IndexSankaku         = 27
	IndexE621            = 29
	IndexMadokami        = 36
	IndexMangaDex        = 37
	IndexMangaDex2       = 371
)

// Classify maps a provider index id to the variant used to model its results.
func Classify(indexID int) Variant {
	switch indexID {
	case IndexAnime, IndexHAnime:
		return VariantAnime
	case IndexMovies, IndexShows:
		return VariantVideo
	case IndexMadokami, IndexMangaDex, IndexMangaDex2:
		return VariantManga
	case IndexDanbooru, IndexYandere, IndexGelbooru, IndexKonachan, IndexSankaku, IndexE621:
		return VariantBooru
	default:
		return VariantGeneric
	}
}

// ParseVariant validates a persisted variant tag.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantGeneric, VariantVideo, VariantManga, VariantAnime, VariantBooru:
		return v, nil
	default:
		return "", fmt.Errorf("unknown result variant %q", s)
	}
}
