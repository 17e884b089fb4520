package audio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// pollyAPI is the part of the Polly client we use
type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollySynthesizer speaks text with Amazon Polly
type PollySynthesizer struct {
	client pollyAPI
	voice  types.VoiceId
	engine types.Engine
}

// NewPollySynthesizer loads the default AWS configuration for region and creates a Polly client
func NewPollySynthesizer(ctx context.Context, region, voice, engine string) (*PollySynthesizer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newPollySynthesizer(polly.NewFromConfig(cfg), voice, engine), nil
}

func newPollySynthesizer(client pollyAPI, voice, engine string) *PollySynthesizer {
	return &PollySynthesizer{
		client: client,
		voice:  types.VoiceId(voice),
		engine: types.Engine(engine),
	}
}

// Synthesize returns MP3 audio for text. A regional language such as
// "ja-JP" is passed through; a bare code leaves the choice to the voice.
func (p *PollySynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	input := &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      p.voice,
	}
	if p.engine != "" {
		input.Engine = p.engine
	}
	if strings.Contains(language, "-") {
		input.LanguageCode = types.LanguageCode(language)
	}

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read polly audio: %w", err)
	}
	return audio, nil
}
