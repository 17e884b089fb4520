package handlers

const (
	// Form fields
	FieldToken = "token"
	FieldDeck  = "deck"

	// noSessionID is the token subject used before any deck has loaded
	noSessionID = "none"

	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidToken        = "This page has expired, reload and try again"
	ErrUploadTooLarge      = "Uploaded file is too large"
	ErrInternalServerError = "Internal server error"

	PageTitle = "ジョイマン百人一首 読み上げアプリ"
)
