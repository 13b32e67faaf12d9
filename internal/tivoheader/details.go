package tivoheader

import (
	"encoding/xml"
	"time"
)

// VideoMetadata is the flat attribute map spec.md §2's Non-goals describe
// file-format metadata extraction as returning; tivoheader only consumes it
// to render the TvBus details document, it never produces it.
type VideoMetadata struct {
	Title          string
	EpisodeTitle   string
	Description    string
	EpisodeNumber  string
	SeriesID       string
	Callsign       string
	OriginalAirDate time.Time
	RecordDate      time.Time
	DurationMillis  int64
	SizeBytes       int64
	IsEpisode       bool
	HD              bool
}

type tvBusShowing struct {
	XMLName xml.Name `xml:"showing"`
	Program tvBusProgram `xml:"program"`
	Time    string `xml:"time"`
}

type tvBusProgram struct {
	XMLName         xml.Name `xml:"program"`
	Title           string   `xml:"title"`
	EpisodeTitle    string   `xml:"episodeTitle,omitempty"`
	Description     string   `xml:"description,omitempty"`
	SeriesID        string   `xml:"seriesId,omitempty"`
	EpisodeNumber   string   `xml:"episodeNumber,omitempty"`
	IsEpisode       bool     `xml:"isEpisode"`
	OriginalAirDate string   `xml:"originalAirDate,omitempty"`
}

type tvBusDetails struct {
	XMLName         xml.Name     `xml:"TvBusEnvelope"`
	ShowingBits     string       `xml:"showingBits"`
	ColorCode       string       `xml:"colorCode"`
	Showing         tvBusShowing `xml:"showing"`
	Callsign        string       `xml:"callsign,omitempty"`
	Time            string       `xml:"time"`
	StartTime       string       `xml:"startTime"`
	StopTime        string       `xml:"stopTime"`
	Duration        int64        `xml:"duration"`
	SourceSize      int64        `xml:"sourceSize"`
}

// RenderDetails builds the TvBus XML document described by spec.md §4.4
// ("a TvBus XML containing metadata (duration, title, airdate, etc.)"),
// following the field set the original tool's VideoDetails/metadata_full
// assembled before templating it (original_source/plugins/video/video.py).
func RenderDetails(m VideoMetadata) ([]byte, error) {
	now := m.RecordDate
	if now.IsZero() {
		now = time.Unix(0, 0).UTC()
	}
	stop := now.Add(time.Duration(m.DurationMillis) * time.Millisecond)

	showingBits := "0"
	if m.HD {
		showingBits = "4096"
	}

	doc := tvBusDetails{
		ShowingBits: showingBits,
		ColorCode:   "4",
		Callsign:    m.Callsign,
		Time:        now.Format(time.RFC3339),
		StartTime:   now.Format(time.RFC3339),
		StopTime:    stop.Format(time.RFC3339),
		Duration:    m.DurationMillis,
		SourceSize:  m.SizeBytes,
		Showing: tvBusShowing{
			Time: now.Format(time.RFC3339),
			Program: tvBusProgram{
				Title:         m.Title,
				EpisodeTitle:  m.EpisodeTitle,
				Description:   m.Description,
				SeriesID:      m.SeriesID,
				EpisodeNumber: m.EpisodeNumber,
				IsEpisode:     m.IsEpisode,
			},
		},
	}
	if !m.OriginalAirDate.IsZero() {
		doc.Showing.Program.OriginalAirDate = m.OriginalAirDate.Format(time.RFC3339)
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// ParseDetails reverses RenderDetails, extracting the VideoMetadata fields
// back out of a TvBus XML document fetched from a TiVo's extended-details
// URL, for the ToGo "write <outfile>.txt with metadata lines" completion
// step (original_source/plugins/togo/togo.py's details_urls handling).
func ParseDetails(data []byte) (VideoMetadata, error) {
	var doc tvBusDetails
	if err := xml.Unmarshal(data, &doc); err != nil {
		return VideoMetadata{}, err
	}
	m := VideoMetadata{
		Title:         doc.Showing.Program.Title,
		EpisodeTitle:  doc.Showing.Program.EpisodeTitle,
		Description:   doc.Showing.Program.Description,
		SeriesID:      doc.Showing.Program.SeriesID,
		EpisodeNumber: doc.Showing.Program.EpisodeNumber,
		IsEpisode:     doc.Showing.Program.IsEpisode,
		Callsign:      doc.Callsign,
		DurationMillis: doc.Duration,
		SizeBytes:      doc.SourceSize,
		HD:             doc.ShowingBits == "4096",
	}
	if t, err := time.Parse(time.RFC3339, doc.Time); err == nil {
		m.RecordDate = t
	}
	if t, err := time.Parse(time.RFC3339, doc.Showing.Program.OriginalAirDate); err == nil {
		m.OriginalAirDate = t
	}
	return m, nil
}
