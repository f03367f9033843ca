package media

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"
)

// Downloader fetches encrypted media payloads from the chat provider's CDN.
type Downloader interface {
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// Normalizer converts webhook envelopes into normalized inbound events. For
// voice notes it runs the download/decrypt/transcribe pipeline under a small
// concurrency cap so a burst of audio cannot monopolize the transcription
// provider.
type Normalizer struct {
	downloader  Downloader
	transcriber Transcriber
	audioSem    *semaphore.Weighted
	logger      *slog.Logger
}

// NormalizerOptions configures a Normalizer.
type NormalizerOptions struct {
	Downloader  Downloader
	Transcriber Transcriber

	// MaxConcurrentAudio caps simultaneous audio pipelines (default 3).
	MaxConcurrentAudio int64

	Logger *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.MaxConcurrentAudio <= 0 {
		opts.MaxConcurrentAudio = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		downloader:  opts.Downloader,
		transcriber: opts.Transcriber,
		audioSem:    semaphore.NewWeighted(opts.MaxConcurrentAudio),
		logger:      logger.With("component", "media"),
	}
}

// Normalize classifies the envelope and produces an inbound event. KindIgnore
// events return with no utterance and no error. Audio failures are returned
// as errors so the caller can decide whether to surface them.
func (n *Normalizer) Normalize(ctx context.Context, env Envelope) (Inbound, error) {
	userKey, chatID, authID, groupJID := Identity(env)
	inbound := Inbound{
		Kind:       Classify(env),
		UserKey:    userKey,
		ChatID:     chatID,
		AuthID:     authID,
		GroupJID:   groupJID,
		SenderName: env.Data.PushName,
	}

	switch inbound.Kind {
	case KindIgnore:
		return inbound, nil
	case KindText:
		inbound.Utterance = textOf(env.Data.Message)
		return inbound, nil
	case KindAudio:
		text, err := n.transcribeAudio(ctx, env.Data.Message.AudioMessage)
		if err != nil {
			return inbound, err
		}
		inbound.Utterance = text
		return inbound, nil
	default:
		return inbound, fmt.Errorf("unhandled message kind %q", inbound.Kind)
	}
}

func (n *Normalizer) transcribeAudio(ctx context.Context, audio *AudioMessage) (string, error) {
	if audio.URL == "" || audio.MediaKey == "" {
		return "", fmt.Errorf("audio message missing url or media key")
	}

	if err := n.audioSem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("audio pipeline unavailable: %w", err)
	}
	defer n.audioSem.Release(1)

	encrypted, err := n.downloader.DownloadMedia(ctx, audio.URL)
	if err != nil {
		return "", fmt.Errorf("audio download failed: %w", err)
	}

	decrypted, err := DecryptMedia(encrypted, audio.MediaKey, audio.Mimetype)
	if err != nil {
		return "", fmt.Errorf("audio decryption failed: %w", err)
	}

	text, err := n.transcriber.Transcribe(ctx, decrypted)
	if err != nil {
		return "", err
	}
	n.logger.Debug("voice note transcribed", "bytes", len(decrypted), "chars", len(text))
	return text, nil
}
