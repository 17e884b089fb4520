package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultGoogleEndpoint is Google Translate's text-to-speech endpoint
const DefaultGoogleEndpoint = "https://translate.google.com/translate_tts"

// maxChunkRunes is the longest text the endpoint accepts in one request
const maxChunkRunes = 100

// ErrEmptyText is returned when there is nothing to speak
var ErrEmptyText = errors.New("text is empty")

// Synthesizer turns text into playable audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// StatusError carries an unexpected upstream HTTP status
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// HTTPStatusCode returns the upstream status code
func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// GoogleSynthesizer provides text-to-speech through Google Translate.
// This is a simple, free option that doesn't require API keys.
type GoogleSynthesizer struct {
	endpoint string
	client   *http.Client
}

// NewGoogleSynthesizer creates a new Google TTS client
func NewGoogleSynthesizer(endpoint string, timeout time.Duration) *GoogleSynthesizer {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &GoogleSynthesizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Synthesize converts text to MP3 audio. Long text is split into chunks
// and the MP3 frames are concatenated, which players handle as one stream.
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}

	var buf bytes.Buffer
	for i, chunk := range chunks {
		if err := s.fetch(ctx, &buf, chunk, language, i, len(chunks)); err != nil {
			return nil, fmt.Errorf("failed to generate audio: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// fetch requests one chunk and appends the audio to w
func (s *GoogleSynthesizer) fetch(ctx context.Context, w io.Writer, text, language string, idx, total int) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", language)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))
	params.Set("idx", strconv.Itoa(idx))
	params.Set("total", strconv.Itoa(total))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if n == 0 {
		return errors.New("empty audio response")
	}
	return nil
}

// splitText breaks text into pieces of at most max runes, cutting after
// punctuation or whitespace where possible.
func splitText(text string, max int) []string {
	runes := []rune(strings.TrimSpace(text))
	var chunks []string

	for len(runes) > 0 {
		if len(runes) <= max {
			chunks = appendChunk(chunks, runes)
			break
		}

		cut := max
		for i := max - 1; i > 0; i-- {
			if isBreak(runes[i]) {
				cut = i + 1
				break
			}
		}
		chunks = appendChunk(chunks, runes[:cut])
		runes = runes[cut:]
	}
	return chunks
}

func appendChunk(chunks []string, runes []rune) []string {
	if s := strings.TrimSpace(string(runes)); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

func isBreak(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '　', '、', '。', '，', '．', '！', '？', ',', '.', '!', '?', ';', ':':
		return true
	}
	return false
}
