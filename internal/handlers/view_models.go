package handlers

import (
	"html/template"
)

type ReaderViewData struct {
	Title     string
	Token     string
	DeckName  string
	HasDeck   bool
	Completed bool

	Read  int
	Total int

	CardID       int
	FirstPhrase  string
	SecondPhrase string

	// AudioSrc is a data: URI for the clip produced by this render
	AudioSrc template.URL
	Autoplay bool

	SpeechError string
	LoadError   string

	MaxUploadMB int64
}

type HealthView struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Deck      string `json:"deck,omitempty"`
	State     string `json:"state"`
	Read      int    `json:"read"`
	Total     int    `json:"total"`
}
