package model

// GenreDimensions is the size of the genre embedding produced by the
// external extraction service.
const GenreDimensions = 128

// MFCCDimensions is the number of MFCC mean coefficients per track.
const MFCCDimensions = 13

// TrackAttributes holds the audio-derived attributes of one catalog track.
// It is computed once by the external extraction service and never mutated.
// Scalar attributes are pointers because the extractor may not produce every
// field for every track; consumers substitute neutral defaults for nil.
type TrackAttributes struct {
	GenreEmbedding []float64 // 128-D, raw (not normalized)
	MFCCMean       []float64 // 13-D
	MFCCCovariance []float64 // 13x13, row-major; not embedded

	MFCCTemporalVariation *float64

	BPM                  *float64
	Loudness             *float64
	DynamicComplexity    *float64
	EnergyCurveMean      *float64
	EnergyCurveStd       *float64
	EnergyCurvePeakCount *float64

	KeyTonic      string
	KeyScale      string
	KeyConfidence *float64

	ChordUniqueChords *float64
	ChordChangeRate   *float64

	VocalPitchPresenceRatio *float64
	VocalPitchSegmentCount  *float64
	VocalAvgPitchDuration   *float64

	GrooveBeatConsistency *float64
	GrooveDanceability    *float64
	GrooveDncBPM          *float64
	GrooveSyncopation     *float64
	GrooveTempoStability  *float64

	MoodAggressiveness *float64
	MoodHappiness      *float64
	MoodPartiness      *float64
	MoodRelaxedness    *float64
	MoodSadness        *float64

	SpectralBrightness   *float64
	SpectralContrastMean *float64
	SpectralValleyStd    *float64
}

// Scalar returns *p, or def when the attribute is missing.
func Scalar(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Float returns a pointer to v; convenience for building attributes.
func Float(v float64) *float64 { return &v }

// Track is one catalog track with its extracted attributes.
type Track struct {
	ID          string
	Artist      string
	Album       string
	Title       string
	TrackNumber int
	Genre       string
	ReleaseType string

	MusicBrainzArtistID string
	MusicBrainzAlbumID  string
	MusicBrainzTrackID  string

	Attributes TrackAttributes
}

// RatedTrack pairs a track with the rating it received in a station's
// history.
type RatedTrack struct {
	Track  Track
	Rating int
}

// TrackRef identifies a track by (artist, title), the key used for
// exclusion lists.
type TrackRef struct {
	Artist string
	Title  string
}

// Key returns the canonical exclusion-set key for the reference.
func (r TrackRef) Key() string {
	return r.Artist + "\x00" + r.Title
}
