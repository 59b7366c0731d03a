package analysis

import (
	"maps"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/lang/en"

	_ "github.com/blevesearch/bleve/v2/analysis/lang/da"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/de"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fi"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/hu"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/it"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/nl"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/no"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pt"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ro"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ru"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/sv"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/tr"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

type language struct {
	stemmer string
	stop    string
}

// languages maps ISO codes to the bleve filters registered by the lang
// packages imported above.
var languages = map[string]language{
	"da": {"stemmer_da_snowball", "stop_da"},
	"de": {"stemmer_de_snowball", "stop_de"},
	"en": {en.SnowballStemmerName, en.StopName},
	"es": {"stemmer_es_snowball", "stop_es"},
	"fi": {"stemmer_fi_snowball", "stop_fi"},
	"fr": {"stemmer_fr_snowball", "stop_fr"},
	"hu": {"stemmer_hu_snowball", "stop_hu"},
	"it": {"stemmer_it_snowball", "stop_it"},
	"nl": {"stemmer_nl_snowball", "stop_nl"},
	"no": {"stemmer_no_snowball", "stop_no"},
	"pt": {"stemmer_pt_light", "stop_pt"},
	"ro": {"stemmer_ro_snowball", "stop_ro"},
	"ru": {"stemmer_ru_snowball", "stop_ru"},
	"sv": {"stemmer_sv_snowball", "stop_sv"},
	"tr": {"stemmer_tr_snowball", "stop_tr"},
}

var languageNames = map[string]string{
	"danish": "da", "german": "de", "english": "en", "spanish": "es",
	"finnish": "fi", "french": "fr", "hungarian": "hu", "italian": "it",
	"dutch": "nl", "norwegian": "no", "portuguese": "pt", "romanian": "ro",
	"russian": "ru", "swedish": "sv", "turkish": "tr",
}

func lookupLanguage(name string) (language, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageNames[key]; ok {
		key = code
	}
	lang, ok := languages[key]
	if !ok {
		return language{}, errors.UnknownOption("language", name)
	}
	return lang, nil
}

// Languages returns the accepted language codes.
func Languages() []string {
	return slices.Sorted(maps.Keys(languages))
}
