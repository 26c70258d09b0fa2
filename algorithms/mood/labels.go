package mood

import (
	"fmt"
	"strings"
)

// EmotionalLabel is a discrete region of the arousal/valence/dominance space
type EmotionalLabel int

const (
	Neutral EmotionalLabel = iota
	Ecstatic
	Angry
	Content
	Depressed
	Triumphant
	Dominant
	Peaceful
	Submissive
)

var labelNames = []string{
	Neutral:    "neutral",
	Ecstatic:   "ecstatic",
	Angry:      "angry",
	Content:    "content",
	Depressed:  "depressed",
	Triumphant: "triumphant",
	Dominant:   "dominant",
	Peaceful:   "peaceful",
	Submissive: "submissive",
}

func (l EmotionalLabel) String() string {
	if l >= 0 && int(l) < len(labelNames) {
		return labelNames[l]
	}
	return "unknown"
}

func (l EmotionalLabel) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(labelNames) {
		return nil, fmt.Errorf("invalid emotional label %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *EmotionalLabel) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range labelNames {
		if n == name {
			*l = EmotionalLabel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown emotional label %q", text)
}

// Genre is a coarse musical genre estimate
type Genre int

const (
	Pop Genre = iota
	Classical
	Electronic
	Rock
	HipHop
	Jazz
	Ambient
)

var genreNames = []string{
	Pop:        "pop",
	Classical:  "classical",
	Electronic: "electronic",
	Rock:       "rock",
	HipHop:     "hiphop",
	Jazz:       "jazz",
	Ambient:    "ambient",
}

// Genres lists every genre in declaration order
func Genres() []Genre {
	out := make([]Genre, len(genreNames))
	for i := range genreNames {
		out[i] = Genre(i)
	}
	return out
}

func (g Genre) String() string {
	if g >= 0 && int(g) < len(genreNames) {
		return genreNames[g]
	}
	return "unknown"
}

// ParseGenre converts a genre name into a Genre
func ParseGenre(name string) (Genre, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range genreNames {
		if n == name {
			return Genre(i), nil
		}
	}
	return Pop, fmt.Errorf("unknown genre %q", name)
}

func (g Genre) MarshalText() ([]byte, error) {
	if g < 0 || int(g) >= len(genreNames) {
		return nil, fmt.Errorf("invalid genre %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *Genre) UnmarshalText(text []byte) error {
	parsed, err := ParseGenre(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// GenreAssociation is static presentation data attached to a genre
type GenreAssociation struct {
	Colors []string `json:"colors"` // Hex colors, most characteristic first
	Note   string   `json:"note"`   // Short cultural description
}

// DefaultGenreAssociations returns the built-in association table
func DefaultGenreAssociations() map[Genre]GenreAssociation {
	return map[Genre]GenreAssociation{
		Pop: {
			Colors: []string{"#FF6FB5", "#FFD23F", "#3BCEAC"},
			Note:   "Bright saturated palettes from album art and music television.",
		},
		Classical: {
			Colors: []string{"#7B2D26", "#C9A227", "#F2E8CF"},
			Note:   "Concert hall materials: burgundy velvet, gilt and ivory.",
		},
		Electronic: {
			Colors: []string{"#00F0FF", "#7A00FF", "#0D0221"},
			Note:   "Club lighting: neon cyan and violet against darkness.",
		},
		Rock: {
			Colors: []string{"#B80C09", "#1B1B1E", "#E0E0E0"},
			Note:   "High contrast red, black and white from posters and stage wear.",
		},
		HipHop: {
			Colors: []string{"#F4B400", "#222222", "#8E44AD"},
			Note:   "Gold and black from street fashion, with purple accents.",
		},
		Jazz: {
			Colors: []string{"#1F3A93", "#D4A017", "#4B3621"},
			Note:   "Smoky club blues, brass and dark wood.",
		},
		Ambient: {
			Colors: []string{"#A8DADC", "#E9F5F2", "#6C8EAD"},
			Note:   "Soft desaturated blues and mist tones.",
		},
	}
}
