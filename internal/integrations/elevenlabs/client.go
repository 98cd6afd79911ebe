package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medical-triage/internal/domain"
)

const (
	defaultBaseURL    = "https://api.elevenlabs.io"
	DefaultModelID    = "eleven_flash_v2_5"
	defaultTimeout    = 30 * time.Second
	maxAudioBytes     = 16 << 20
)

var (
	// ErrNoAudio is returned when the upstream responds without an audio payload.
	ErrNoAudio = errors.New("elevenlabs: response has no audio")
	// ErrAudioTooLarge is returned when the audio exceeds the accepted size.
	ErrAudioTooLarge = errors.New("elevenlabs: audio exceeds size limit")
)

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// KeyResolver returns the API key, typically from SSM.
type KeyResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("elevenlabs: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client renders text to MPEG audio with the ElevenLabs text-to-speech API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	key        KeyResolver
	maxAudio   int64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(key KeyResolver, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("elevenlabs: key resolver must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		key:        key,
		maxAudio:   maxAudioBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ready reports whether the API key can be resolved.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.key.Resolve(ctx)
	return err
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func speechURL(baseURL, voiceID string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	base = strings.TrimSuffix(base, "/v1")
	return base + "/v1/text-to-speech/" + url.PathEscape(voiceID)
}

// settingsFor defaults the model and clamps voice parameters to [0,1].
func settingsFor(voice domain.VoiceConfig) (string, voiceSettings) {
	modelID := strings.TrimSpace(voice.ModelID)
	if modelID == "" {
		modelID = DefaultModelID
	}
	return modelID, voiceSettings{
		Stability:       clampUnit(voice.Stability),
		SimilarityBoost: clampUnit(voice.SimilarityBoost),
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Synthesize renders text with the given voice and returns the raw audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	voiceID := strings.TrimSpace(voice.VoiceID)
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voice id is required")
	}
	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: resolve api key: %w", err)
	}

	modelID, settings := settingsFor(voice)
	body, err := json.Marshal(speechRequest{
		Text:          text,
		ModelID:       modelID,
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	endpoint := speechURL(c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: endpoint, Body: string(buf)}
	}

	audio, err := io.ReadAll(io.LimitReader(res.Body, c.maxAudio+1))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if int64(len(audio)) > c.maxAudio {
		return nil, ErrAudioTooLarge
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	return audio, nil
}
