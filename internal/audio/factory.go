package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"yomiage/internal/config"
)

// NewSynthesizer builds the provider named by the configuration, wraps it with
// retry and circuit breaking, and puts the configured cache in front.
// store is only used when AUDIO_CACHE=database.
func NewSynthesizer(ctx context.Context, cfg *config.Config, store Store, logger *slog.Logger) (Synthesizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var synth Synthesizer

	switch strings.ToLower(cfg.TTSProvider) {
	case "polly":
		p, err := NewPollySynthesizer(ctx, cfg.AWSRegion, cfg.PollyVoice, cfg.PollyEngine)
		if err != nil {
			return nil, err
		}
		synth = p
	case "google", "":
		synth = NewGoogleSynthesizer(cfg.TTSEndpoint, cfg.TTSTimeout)
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.TTSProvider)
	}

	if cfg.TTSRetry {
		rc := DefaultResilientConfig()
		rc.Logger = logger
		synth = NewResilientSynthesizer(synth, rc)
	}

	switch strings.ToLower(cfg.AudioCache) {
	case "memory":
		synth = NewCachingSynthesizer(synth, NewMemoryCache())
	case "database":
		if store == nil {
			return nil, errors.New("AUDIO_CACHE=database requires a clip store")
		}
		synth = NewCachingSynthesizer(synth, NewStoreCache(store, logger))
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported audio cache: %s", cfg.AudioCache)
	}

	logger.Info("speech synthesizer ready", "provider", cfg.TTSProvider, "cache", cfg.AudioCache, "retry", cfg.TTSRetry)
	return synth, nil
}
