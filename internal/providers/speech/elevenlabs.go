package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"scenegen/internal/domain"
	"scenegen/internal/infra"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	defaultModel   = "eleven_monolingual_v1"
)

// Options configures the ElevenLabs client.
type Options struct {
	APIKey     string
	BaseURL    string
	VoiceID    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// ElevenLabs implements domain.SpeechSynthesizer over the text-to-speech API.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	voiceID    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// VoiceSettings mirrors the voice_settings payload field.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// NarrationSettings are applied to every synthesis request.
var NarrationSettings = VoiceSettings{
	Stability:       0.75,
	SimilarityBoost: 0.75,
	Style:           0.5,
	UseSpeakerBoost: true,
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Voice is one entry of the voices listing.
type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// New builds a client. An empty API key is allowed: Synthesize then returns
// no audio and Voices an empty list.
func New(opts Options) *ElevenLabs {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: infra.SpeechTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	voice := strings.TrimSpace(opts.VoiceID)
	if voice == "" {
		voice = defaultVoiceID
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    base,
		voiceID:    voice,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (e *ElevenLabs) Configured() bool {
	return e != nil && e.apiKey != ""
}

// Synthesize returns MP3 bytes for text. Without an API key it returns nil
// bytes and no error.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !e.Configured() {
		e.logf("speech: elevenlabs api key not configured")
		return nil, nil
	}
	if strings.TrimSpace(voiceID) == "" {
		voiceID = e.voiceID
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: e.model, VoiceSettings: NarrationSettings})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal request: %w", err)
	}
	endpoint := e.baseURL + "/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("speech: elevenlabs status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read audio: %w", err)
	}
	return audio, nil
}

// Voices lists the voices available to the account.
func (e *ElevenLabs) Voices(ctx context.Context) ([]Voice, error) {
	if !e.Configured() {
		return []Voice{}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: list voices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("speech: elevenlabs status %d", resp.StatusCode)
	}

	var out voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("speech: decode voices: %w", err)
	}
	if out.Voices == nil {
		out.Voices = []Voice{}
	}
	return out.Voices, nil
}

func (e *ElevenLabs) logf(msg string) {
	if e != nil && e.logger != nil {
		e.logger.Warn().Msg(msg)
	}
}

var _ domain.SpeechSynthesizer = (*ElevenLabs)(nil)
