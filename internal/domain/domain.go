// Package domain defines the core data types shared by the AniGen pipeline:
// the closed generation parameter sets, the persisted MusicTheme record,
// pricing constants and the error taxonomy.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Pricing and renewal defaults.
const (
	// GenerationCost is debited before every generation attempt.
	GenerationCost int64 = 3

	// MonthlyGrant is the free credit level restored at each renewal.
	MonthlyGrant int64 = 9

	// RenewalPeriod is the cycle length measured from the last reset.
	RenewalPeriod = 30 * 24 * time.Hour
)

// Audio format produced by the speech collaborators.
const (
	SampleRate = 24000
	Channels   = 1
	BitDepth   = 16
)

// Duration bounds in minutes.
const (
	MinDurationMinutes  = 1.0
	MaxDurationMinutes  = 8.0
	DurationStepMinutes = 0.5
)

// Genre is a closed set of musical genres.
type Genre string

const (
	GenreJPop       Genre = "J-Pop"
	GenreLoFi       Genre = "Lo-Fi"
	GenreSynthwave  Genre = "Synthwave"
	GenreOrchestral Genre = "Orchestral"
	GenreRock       Genre = "Rock"
	GenreJazz       Genre = "Jazz"
	GenreHipHop     Genre = "Hip Hop"
	GenreElectronic Genre = "Electronic"
	GenreAmbient    Genre = "Ambient"
	GenreFolk       Genre = "Folk"
	GenreMetal      Genre = "Metal"
	GenreTechno     Genre = "Techno"
	GenreBlues      Genre = "Blues"
	GenreCountry    Genre = "Country"
	GenreClassical  Genre = "Classical"
)

// Mood is a closed set of moods.
type Mood string

const (
	MoodHappy       Mood = "Happy"
	MoodSad         Mood = "Sad"
	MoodEnergetic   Mood = "Energetic"
	MoodCalm        Mood = "Calm"
	MoodAngry       Mood = "Angry"
	MoodMysterious  Mood = "Mysterious"
	MoodRomantic    Mood = "Romantic"
	MoodEpic        Mood = "Epic"
	MoodDark        Mood = "Dark"
	MoodChill       Mood = "Chill"
	MoodUplifting   Mood = "Uplifting"
	MoodNostalgic   Mood = "Nostalgic"
	MoodIntense     Mood = "Intense"
	MoodEthereal    Mood = "Ethereal"
	MoodQuirky      Mood = "Quirky"
	MoodMelancholic Mood = "Melancholic"
	MoodHopeful     Mood = "Hopeful"
	MoodSuspenseful Mood = "Suspenseful"
)

// Tempo is a closed set of tempo descriptors.
type Tempo string

const (
	TempoVerySlow Tempo = "Very Slow"
	TempoSlow     Tempo = "Slow"
	TempoModerate Tempo = "Moderate"
	TempoFast     Tempo = "Fast"
	TempoVeryFast Tempo = "Very Fast"
	TempoExtreme  Tempo = "Extreme"
)

// Genres lists every accepted genre in presentation order.
var Genres = []Genre{
	GenreJPop, GenreLoFi, GenreSynthwave, GenreOrchestral, GenreRock,
	GenreJazz, GenreHipHop, GenreElectronic, GenreAmbient, GenreFolk,
	GenreMetal, GenreTechno, GenreBlues, GenreCountry, GenreClassical,
}

// Moods lists every accepted mood in presentation order.
var Moods = []Mood{
	MoodHappy, MoodSad, MoodEnergetic, MoodCalm, MoodAngry, MoodMysterious,
	MoodRomantic, MoodEpic, MoodDark, MoodChill, MoodUplifting, MoodNostalgic,
	MoodIntense, MoodEthereal, MoodQuirky, MoodMelancholic, MoodHopeful, MoodSuspenseful,
}

// Tempos lists every accepted tempo in presentation order.
var Tempos = []Tempo{
	TempoVerySlow, TempoSlow, TempoModerate, TempoFast, TempoVeryFast, TempoExtreme,
}

// Valid reports whether g is one of Genres.
func (g Genre) Valid() bool {
	for _, v := range Genres {
		if v == g {
			return true
		}
	}
	return false
}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// Valid reports whether t is one of Tempos.
func (t Tempo) Valid() bool {
	for _, v := range Tempos {
		if v == t {
			return true
		}
	}
	return false
}

// Params are the user-selected parameters of a generation request.
type Params struct {
	// Genre of the piece (closed set).
	Genre Genre `json:"genre"`

	// Mood of the piece (closed set).
	Mood Mood `json:"mood"`

	// Tempo of the piece (closed set).
	Tempo Tempo `json:"tempo"`

	// DurationMinutes is in [1.0, 8.0] with a 0.5 step.
	DurationMinutes float64 `json:"duration_minutes"`
}

// DefaultParams mirrors the initial selection of the studio UI.
func DefaultParams() Params {
	return Params{
		Genre:           GenreLoFi,
		Mood:            MoodChill,
		Tempo:           TempoModerate,
		DurationMinutes: 2.0,
	}
}

// Validate checks every field against its closed set or range.
func (p Params) Validate() error {
	if !p.Genre.Valid() {
		return fmt.Errorf("%w: unknown genre %q", ErrInvalidInput, p.Genre)
	}
	if !p.Mood.Valid() {
		return fmt.Errorf("%w: unknown mood %q", ErrInvalidInput, p.Mood)
	}
	if !p.Tempo.Valid() {
		return fmt.Errorf("%w: unknown tempo %q", ErrInvalidInput, p.Tempo)
	}
	d := p.DurationMinutes
	if math.IsNaN(d) || d < MinDurationMinutes || d > MaxDurationMinutes {
		return fmt.Errorf("%w: duration %.2f outside [%.1f, %.1f] minutes", ErrInvalidInput, d, MinDurationMinutes, MaxDurationMinutes)
	}
	steps := d / DurationStepMinutes
	if steps != math.Trunc(steps) {
		return fmt.Errorf("%w: duration %.2f is not a multiple of %.1f minutes", ErrInvalidInput, d, DurationStepMinutes)
	}
	return nil
}

// MusicTheme is the saved result of a generation request. The core produces
// its content; only the vault persists it, and only on explicit user action.
type MusicTheme struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Description     string    `json:"description"`
	Genre           Genre     `json:"genre"`
	Mood            Mood      `json:"mood"`
	Tempo           Tempo     `json:"tempo"`
	DurationMinutes float64   `json:"duration_minutes"`
	Timestamp       time.Time `json:"timestamp"`
}

// ImagePrompt carries the fields of the image creator form.
type ImagePrompt struct {
	Character   string `json:"character"`
	Environment string `json:"environment"`
	Extra       string `json:"extra,omitempty"`
}

// Validate requires the character and environment descriptions.
func (p ImagePrompt) Validate() error {
	if p.Character == "" || p.Environment == "" {
		return fmt.Errorf("%w: character and environment are required", ErrInvalidInput)
	}
	return nil
}
