package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enton/internal/config"
)

type named string

func (n named) ID() string { return string(n) }

func TestChain_GetPrefersPrimary(t *testing.T) {
	c := NewChain[named]("openai", []string{"local", "openai"})
	_, err := c.Get()
	assert.ErrorIs(t, err, ErrNoProvider)

	c.Register(named("local"))
	got, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, named("local"), got, "first registered when primary is absent")

	c.Register(named("openai"))
	got, _ = c.Get()
	assert.Equal(t, named("openai"), got)
	assert.Equal(t, []string{"local", "openai"}, c.IDs())
}

func TestChain_WalkFollowsFallbackOrder(t *testing.T) {
	c := NewChain[named]("a", []string{"a", "missing", "b", "c"})
	for _, id := range []string{"c", "b", "a"} {
		c.Register(named(id))
	}

	var tried []string
	id, err := c.Walk("a", func(p named) error {
		tried = append(tried, string(p))
		if p == "b" {
			return errors.New("down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "c", id)
	assert.Equal(t, []string{"b", "c"}, tried)

	boom := errors.New("boom")
	_, err = c.Walk("", func(named) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = NewChain[named]("x", nil).Walk("", func(named) error { return nil })
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestWAV_RoundTrip(t *testing.T) {
	in := Audio{Samples: []float32{0, 0.5, -0.5, 1, -1}, SampleRate: 16000}
	out, err := DecodeWAV(EncodeWAV(in))
	require.NoError(t, err)
	assert.Equal(t, 16000, out.SampleRate)
	require.Len(t, out.Samples, len(in.Samples))
	for i := range in.Samples {
		assert.InDelta(t, in.Samples[i], out.Samples[i], 1e-3)
	}
	assert.InDelta(t, 1.0, out.Peak(), 1e-3)

	_, err = DecodeWAV([]byte("not a wav"))
	assert.ErrorIs(t, err, ErrBadWAV)
}

func newEndpoint(t *testing.T, h http.HandlerFunc, cfg config.EndpointConfig) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	if cfg.Model == "" {
		cfg.Model = "test-model"
	}
	return NewOpenAI("test", cfg)
}

func TestOpenAI_Generate(t *testing.T) {
	var got openAIRequest
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"choices":[{"message":{"content":"  hi there "}}]}`)
	}, config.EndpointConfig{APIKey: "k"})

	text, err := c.Generate(context.Background(), "hello", "be nice", []Message{
		{Role: RoleUser, Content: "earlier"},
		{Role: RoleAssistant, Content: "reply"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)

	roles := make([]string, len(got.Messages))
	for i, m := range got.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "test-model", got.Model)
}

func TestOpenAI_ToolCalls(t *testing.T) {
	var raw map[string]interface{}
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		io.WriteString(w, `{"choices":[{"message":{"content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"run_command","arguments":"{\"command\":\"ls\"}"}}]}}]}`)
	}, config.EndpointConfig{})

	resp, err := c.GenerateWithTools(context.Background(), []Message{{Role: RoleUser, Content: "list"}}, "", []ToolDefinition{{
		Name:        "run_command",
		Description: "Run a shell command",
		Parameters:  map[string]interface{}{"type": "object"},
	}})
	require.NoError(t, err)

	want := []ToolCall{{ID: "call_1", Name: "run_command", Input: map[string]interface{}{"command": "ls"}}}
	if diff := cmp.Diff(want, resp.ToolCalls); diff != "" {
		t.Errorf("tool calls (-want +got):\n%s", diff)
	}
	assert.Equal(t, "auto", raw["tool_choice"])
	tools := raw["tools"].([]interface{})
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	assert.Equal(t, "run_command", fn["name"])
}

func TestOpenAI_ToolTurnsAreSent(t *testing.T) {
	var got openAIRequest
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"choices":[{"message":{"content":"done"}}]}`)
	}, config.EndpointConfig{})

	_, err := c.GenerateWithTools(context.Background(), []Message{
		{Role: RoleUser, Content: "list"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "ls", Input: map[string]interface{}{}}}},
		{Role: RoleTool, ToolCallID: "c1", Name: "ls", Content: "a.txt"},
	}, "", nil)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "c1", got.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "c1", got.Messages[2].ToolCallID)
}

func TestOpenAI_Errors(t *testing.T) {
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}, config.EndpointConfig{})
	_, err := c.Generate(context.Background(), "x", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	keyless := NewOpenAI("openai", config.EndpointConfig{BaseURL: "http://127.0.0.1:1", RequiresKey: true, Model: "m"})
	_, err = keyless.Generate(context.Background(), "x", "", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAI_Image(t *testing.T) {
	var body string
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, `{"choices":[{"message":{"content":"a desk"}}]}`)
	}, config.EndpointConfig{VisionModel: "vl"})

	text, err := c.GenerateWithImage(context.Background(), "what is this?", []byte{0xff, 0xd8}, "")
	require.NoError(t, err)
	assert.Equal(t, "a desk", text)
	assert.Contains(t, body, `"model":"vl"`)
	assert.Contains(t, body, "data:image/jpeg;base64,/9g=")
}

func TestOpenAI_SpeechRoundTrip(t *testing.T) {
	tone := Audio{Samples: []float32{0.1, 0.2, 0.3}, SampleRate: 24000}
	c := newEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "whisper", r.FormValue("model"))
			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.True(t, strings.HasPrefix(string(data), "RIFF"))
			io.WriteString(w, `{"text":" ola mundo "}`)
		case "/audio/speech":
			var req openAISpeechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "wav", req.ResponseFormat)
			assert.Equal(t, "pf_dora", req.Voice)
			w.Write(EncodeWAV(tone))
		default:
			http.NotFound(w, r)
		}
	}, config.EndpointConfig{STTModel: "whisper", TTSModel: "kokoro", TTSVoice: "pf_dora"})

	text, err := c.Transcribe(context.Background(), tone)
	require.NoError(t, err)
	assert.Equal(t, "ola mundo", text)

	audio, err := c.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 24000, audio.SampleRate)
	assert.Len(t, audio.Samples, 3)
}

type countingLock struct{ acquired, released int }

func (l *countingLock) Acquire(context.Context) (func(), error) {
	l.acquired++
	return func() { l.released++ }, nil
}

func TestFromConfig_OmitsKeylessProviders(t *testing.T) {
	cfg := config.DefaultConfig()
	lock := &countingLock{}
	set := FromConfig(context.Background(), cfg, lock)

	assert.Equal(t, []string{"local"}, set.LLM.IDs())
	assert.Equal(t, []string{"local"}, set.STT.IDs())
	assert.Equal(t, []string{"local"}, set.TTS.IDs())

	llm, err := set.LLM.Get()
	require.NoError(t, err)
	assert.Equal(t, "local", llm.ID())
	assert.Same(t, lock, llm.(*OpenAI).gpu)
}
