package formats

import "strings"

// Format is a normalized item format tag.
type Format string

// The closed set of item formats.
const (
	Book             Format = "book"
	Article          Format = "article"
	AudioBook        Format = "audio_book"
	EBook            Format = "e_book"
	EMusic           Format = "e_music"
	EVideo           Format = "e_video"
	CD               Format = "cd"
	DVD              Format = "dvd"
	LP               Format = "lp"
	Map              Format = "map"
	Score            Format = "score"
	Journal          Format = "journal"
	Newspaper        Format = "newspaper"
	Thesis           Format = "thesis"
	Image            Format = "image"
	ArchivalMaterial Format = "archival_material"
	ComputerFile     Format = "computer_file"
	Other            Format = "other"
)

// All lists every format in the closed set, including Other.
var All = []Format{
	Book, Article, AudioBook, EBook, EMusic, EVideo, CD, DVD, LP, Map,
	Score, Journal, Newspaper, Thesis, Image, ArchivalMaterial, ComputerFile, Other,
}

// weights rank formats by specificity. Generic print classifications sit at
// the bottom, digital and media carriers at the top.
var weights = map[Format]int{
	Book:             1,
	Journal:          2,
	Article:          3,
	Newspaper:        3,
	Thesis:           4,
	Map:              4,
	Score:            4,
	Image:            4,
	ArchivalMaterial: 4,
	ComputerFile:     4,
	AudioBook:        5,
	EBook:            5,
	CD:               6,
	DVD:              6,
	LP:               6,
	EVideo:           8,
	EMusic:           10,
}

// identifiers maps raw type, book format, genre and music sub-format values
// to formats. Keys are stored as written and folded by init.
var identifiers = map[string]Format{
	// book formats
	"http://schema.org/Hardcover":           Book,
	"http://schema.org/Paperback":           Book,
	"http://schema.org/Book":                Book,
	"http://bibliograph.net/PrintBook":      Book,
	"http://bibliograph.net/LargePrintBook": Book,
	"http://bibliograph.net/AudioBook":      AudioBook,
	"http://schema.org/AudioBook":           AudioBook,
	"http://schema.org/EBook":               EBook,

	// creative work types
	"http://schema.org/Article":              Article,
	"http://schema.org/ScholarlyArticle":     Article,
	"http://schema.org/Periodical":           Journal,
	"http://bibliograph.net/Serial":          Journal,
	"http://bibliograph.net/Newspaper":       Newspaper,
	"http://bibliograph.net/Thesis":          Thesis,
	"http://schema.org/Thesis":               Thesis,
	"http://schema.org/Map":                  Map,
	"http://bibliograph.net/Map":             Map,
	"http://bibliograph.net/MusicalScore":    Score,
	"http://schema.org/Photograph":           Image,
	"http://schema.org/VisualArtwork":        Image,
	"http://bibliograph.net/Image":           Image,
	"http://bibliograph.net/ArchiveMaterial": ArchivalMaterial,
	"http://schema.org/ArchiveComponent":     ArchivalMaterial,
	"http://bibliograph.net/ComputerFile":    ComputerFile,
	"http://schema.org/SoftwareApplication":  ComputerFile,
	"http://bibliograph.net/CD":              CD,
	"http://bibliograph.net/DVD":             DVD,
	"http://bibliograph.net/LPRecord":        LP,
	"http://bibliograph.net/VideoObject":     EVideo,

	// music album sub-formats
	"http://schema.org/CDFormat":               CD,
	"http://schema.org/VinylFormat":            LP,
	"http://schema.org/DVDFormat":              DVD,
	"http://schema.org/DigitalAudioTapeFormat": EMusic,
	"http://schema.org/DigitalFormat":          EMusic,

	// genres
	"Streaming audio":    EMusic,
	"Streaming video":    EVideo,
	"Internet videos":    EVideo,
	"Electronic books":   EBook,
	"Audiobooks":         AudioBook,
	"Maps":               Map,
	"Scores":             Score,
	"Academic theses":    Thesis,
	"Newspapers":         Newspaper,
	"Periodicals":        Journal,
	"Photographs":        Image,
	"Archival materials": ArchivalMaterial,
}

// lookup is the case-folded view of identifiers, built once.
var lookup = func() map[string]Format {
	folded := make(map[string]Format, len(identifiers))
	for k, v := range identifiers {
		folded[normalize(k)] = v
	}
	return folded
}()

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup returns the format and weight for a raw identifier.
func Lookup(id string) (Format, int, bool) {
	f, ok := lookup[normalize(id)]
	if !ok {
		return "", 0, false
	}
	return f, weights[f], true
}

// Weight returns the tie-break weight of a format; Other and unknown tags weigh 0.
func Weight(f Format) int {
	return weights[f]
}
