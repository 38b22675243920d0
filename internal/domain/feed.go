package domain

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// naN is the sentinel the feed parser stores for absent text fields.
const naN = "NaN"

// feedDocument mirrors the ilmateenistus.ee observations XML layout.
// All leaf values decode as strings so that empty elements can be
// defaulted and non-numeric text can fail the whole document.
type feedDocument struct {
	XMLName   xml.Name      `xml:"observations"`
	Timestamp string        `xml:"timestamp,attr"`
	Stations  []feedStation `xml:"station"`
}

type feedStation struct {
	Name           string `xml:"name"`
	WMOCode        string `xml:"wmocode"`
	Phenomenon     string `xml:"phenomenon"`
	AirTemperature string `xml:"airtemperature"`
	WindSpeed      string `xml:"windspeed"`
}

// ParseFeed converts an observations XML document into one Observation per
// station child, in document order. Missing or empty fields take defaults
// ("NaN" for text, zero for numbers); non-numeric text in a numeric field
// fails the whole document. The recorded timestamp is always the feed-level
// document timestamp, not anything per station.
func ParseFeed(data []byte) ([]Observation, error) {
	var doc feedDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	timestamp, err := parseInt64Field("timestamp", doc.Timestamp)
	if err != nil {
		return nil, err
	}

	observations := make([]Observation, 0, len(doc.Stations))
	for _, station := range doc.Stations {
		code, err := parseIntField("wmocode", station.WMOCode)
		if err != nil {
			return nil, err
		}
		airTemperature, err := parseFloatField("airtemperature", station.AirTemperature)
		if err != nil {
			return nil, err
		}
		windSpeed, err := parseFloatField("windspeed", station.WindSpeed)
		if err != nil {
			return nil, err
		}

		observations = append(observations, Observation{
			StationName:    textOrNaN(station.Name),
			WMOCode:        code,
			AirTemperature: airTemperature,
			WindSpeed:      windSpeed,
			Phenomenon:     textOrNaN(station.Phenomenon),
			Timestamp:      timestamp,
		})
	}
	return observations, nil
}

func textOrNaN(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return naN
	}
	return s
}

func parseInt64Field(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %s %q: %w", name, s, err)
	}
	return v, nil
}

func parseIntField(name, s string) (int, error) {
	v, err := parseInt64Field(name, s)
	return int(v), err
}

func parseFloatField(name, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %s %q: %w", name, s, err)
	}
	return v, nil
}
