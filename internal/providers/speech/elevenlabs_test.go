package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSynthesize(t *testing.T) {
	var got *http.Request
	var payload synthesizeRequest
	client := New(Options{
		APIKey:  "secret",
		BaseURL: "https://tts.example/v1/",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			got = req
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ID3audio"))}, nil
		})},
	})

	audio, err := client.Synthesize(context.Background(), "Where am I?", "")
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Fatalf("audio = %q", audio)
	}
	if got.URL.String() != "https://tts.example/v1/text-to-speech/"+defaultVoiceID {
		t.Fatalf("url = %q", got.URL.String())
	}
	if got.Header.Get("xi-api-key") != "secret" || got.Header.Get("Accept") != "audio/mpeg" {
		t.Fatalf("headers = %v", got.Header)
	}
	if payload.ModelID != "eleven_monolingual_v1" || payload.Text != "Where am I?" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.VoiceSettings != NarrationSettings {
		t.Fatalf("voice settings = %+v, want %+v", payload.VoiceSettings, NarrationSettings)
	}
}

func TestSynthesizeWithoutKey(t *testing.T) {
	client := New(Options{HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatalf("no request expected without an api key")
		return nil, nil
	})}})
	audio, err := client.Synthesize(context.Background(), "text", "voice")
	if err != nil || len(audio) != 0 {
		t.Fatalf("Synthesize = %q, %v; want empty, nil", audio, err)
	}
	voices, err := client.Voices(context.Background())
	if err != nil || len(voices) != 0 {
		t.Fatalf("Voices = %v, %v; want empty, nil", voices, err)
	}
}

func TestSynthesizeStatusError(t *testing.T) {
	client := New(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(`{"detail":"bad key"}`))}, nil
		})},
	})
	_, err := client.Synthesize(context.Background(), "text", "custom")
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("Synthesize error = %v, want status 401", err)
	}
}

func TestVoices(t *testing.T) {
	client := New(Options{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/voices" {
				t.Fatalf("path = %q", req.URL.Path)
			}
			body := `{"voices":[{"voice_id":"v1","name":"Rachel","labels":{"accent":"american"}}]}`
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
		})},
	})
	voices, err := client.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices error: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "Rachel" || voices[0].Labels["accent"] != "american" {
		t.Fatalf("voices = %+v", voices)
	}
}
