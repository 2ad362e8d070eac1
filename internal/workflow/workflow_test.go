package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/ledger"
	"github.com/anigen/anigen/internal/pcm"
	"github.com/anigen/anigen/internal/provider"
	"github.com/anigen/anigen/internal/vault"
	"github.com/anigen/anigen/internal/wav"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type fakeDescriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	block chan struct{} // when set, Describe waits for it to close
}

func (f *fakeDescriber) Name() string { return "fake" }

func (f *fakeDescriber) Describe(ctx context.Context, _ domain.Params) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeDescriber) Close() error { return nil }

func (f *fakeDescriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSpeech struct {
	payload  string
	ok       bool
	err      error
	gotText  string
	gotVoice string
}

func (f *fakeSpeech) Name() string { return "fake-speech" }

func (f *fakeSpeech) Synthesize(_ context.Context, text, voice string) (string, bool, error) {
	f.gotText = text
	f.gotVoice = voice
	return f.payload, f.ok, f.err
}

func (f *fakeSpeech) Close() error { return nil }

type fakeImager struct {
	img []byte
	err error
}

func (f *fakeImager) Name() string { return "fake-imager" }

func (f *fakeImager) GenerateImage(context.Context, domain.ImagePrompt) ([]byte, error) {
	return f.img, f.err
}

func (f *fakeImager) Close() error { return nil }

type fakePlayer struct {
	mu     sync.Mutex
	played [][]float32
	plays  int
	stops  int
	closed bool
}

func (p *fakePlayer) PrepareAndPlay(_ context.Context, samples [][]float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	p.played = samples
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) Wait(context.Context) error { return nil }

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func playerOf(p *fakePlayer) func() Player {
	return func() Player { return p }
}

// four samples: 0, max, min, -1
var testPCM = []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0xff, 0xff}

func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	book := ledger.NewBook(ledger.NewMemoryStore(), ledger.DefaultPolicy(), ledger.WithClock(fixedNow))
	l, err := book.Ledger(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Ledger() err = %v", err)
	}
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	return NewSession(l, cfg)
}

func balance(t *testing.T, s *Session) int64 {
	t.Helper()
	b, err := s.Ledger().Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance() err = %v", err)
	}
	return b
}

func collect(ch <-chan Transition) []Transition {
	var out []Transition
	for {
		select {
		case tr := <-ch:
			out = append(out, tr)
		default:
			return out
		}
	}
}

func TestGenerate_ReadyWithAudio(t *testing.T) {
	speech := &fakeSpeech{payload: pcm.EncodeTransport(testPCM), ok: true}
	s := newTestSession(t, Config{
		Describer: &fakeDescriber{text: "Rain on neon streets."},
		Speech:    speech,
	})
	events, cancel := s.Subscribe()
	defer cancel()

	out, err := s.Generate(context.Background(), domain.DefaultParams())
	if err != nil {
		t.Fatalf("Generate() err = %v", err)
	}
	if out.State != StateReady {
		t.Fatalf("State = %s, want ready (err %v)", out.State, out.Err)
	}
	if out.Description != "Rain on neon streets." {
		t.Errorf("Description = %q", out.Description)
	}
	if !out.HasAudio() || out.Audio.Frames() != 4 {
		t.Errorf("audio frames = %d, want 4", out.Audio.Frames())
	}
	if out.Charged != domain.GenerationCost {
		t.Errorf("Charged = %d, want %d", out.Charged, domain.GenerationCost)
	}
	if got := balance(t, s); got != domain.MonthlyGrant-domain.GenerationCost {
		t.Errorf("balance = %d, want %d", got, domain.MonthlyGrant-domain.GenerationCost)
	}
	if speech.gotVoice != provider.DefaultVoice {
		t.Errorf("voice = %q, want %q", speech.gotVoice, provider.DefaultVoice)
	}

	want := []State{StateCharging, StateRequesting, StateDecoding, StateReady}
	got := collect(events)
	if len(got) != len(want) {
		t.Fatalf("transitions = %+v, want %d", got, len(want))
	}
	prev := StateIdle
	for i, tr := range got {
		if tr.From != prev || tr.To != want[i] {
			t.Errorf("transition %d = %s->%s, want %s->%s", i, tr.From, tr.To, prev, want[i])
		}
		if tr.RequestID != out.RequestID || tr.Kind != KindMusic {
			t.Errorf("transition %d carries %v/%s", i, tr.RequestID, tr.Kind)
		}
		prev = tr.To
	}
}

func TestGenerate_NineCreditsThreeRequests(t *testing.T) {
	desc := &fakeDescriber{text: "ok"}
	s := newTestSession(t, Config{Describer: desc})

	wantBalances := []int64{6, 3, 0}
	for i, want := range wantBalances {
		out, err := s.Generate(context.Background(), domain.DefaultParams())
		if err != nil {
			t.Fatalf("request %d: err = %v", i, err)
		}
		if out.State != StateReady {
			t.Fatalf("request %d: state = %s", i, out.State)
		}
		if got := balance(t, s); got != want {
			t.Errorf("request %d: balance = %d, want %d", i, got, want)
		}
	}

	out, err := s.Generate(context.Background(), domain.DefaultParams())
	if err != nil {
		t.Fatalf("fourth request: err = %v", err)
	}
	if out.State != StateRejected {
		t.Fatalf("fourth request: state = %s, want rejected", out.State)
	}
	if !errors.Is(out.Err, domain.ErrInsufficientCredits) {
		t.Errorf("Err = %v, want ErrInsufficientCredits", out.Err)
	}
	if out.Charged != 0 {
		t.Errorf("Charged = %d, want 0", out.Charged)
	}
	if desc.Calls() != 3 {
		t.Errorf("describer calls = %d, want 3", desc.Calls())
	}
	if got := balance(t, s); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestGenerate_FailureKeepsCharge(t *testing.T) {
	tests := []struct {
		name   string
		desc   *fakeDescriber
		speech *fakeSpeech
		is     error
	}{
		{
			name: "describer error",
			desc: &fakeDescriber{err: provider.Remotef("fake", "status 500")},
			is:   domain.ErrRemoteGeneration,
		},
		{
			name:   "speech error",
			desc:   &fakeDescriber{text: "ok"},
			speech: &fakeSpeech{err: provider.Remotef("fake-speech", "quota")},
			is:     domain.ErrRemoteGeneration,
		},
		{
			name:   "undecodable payload",
			desc:   &fakeDescriber{text: "ok"},
			speech: &fakeSpeech{payload: "%%%not base64%%%", ok: true},
			is:     domain.ErrInvalidInput,
		},
		{
			name:   "odd byte length",
			desc:   &fakeDescriber{text: "ok"},
			speech: &fakeSpeech{payload: pcm.EncodeTransport([]byte{1, 2, 3}), ok: true},
			is:     domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Describer: tt.desc}
			if tt.speech != nil {
				cfg.Speech = tt.speech
			}
			s := newTestSession(t, cfg)

			out, err := s.Generate(context.Background(), domain.DefaultParams())
			if err != nil {
				t.Fatalf("Generate() err = %v", err)
			}
			if out.State != StateFailed {
				t.Fatalf("State = %s, want failed", out.State)
			}
			if !errors.Is(out.Err, tt.is) {
				t.Errorf("Err = %v, want %v", out.Err, tt.is)
			}
			if out.Audio != nil {
				t.Error("failed outcome carries audio")
			}
			if got := balance(t, s); got != domain.MonthlyGrant-domain.GenerationCost {
				t.Errorf("balance = %d, want charge kept", got)
			}
			if s.State() != StateFailed {
				t.Errorf("session state = %s, want failed", s.State())
			}
		})
	}
}

func TestGenerate_EmptyDescriptionFallsBack(t *testing.T) {
	s := newTestSession(t, Config{Describer: &fakeDescriber{}})
	out, err := s.Generate(context.Background(), domain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if out.Description != provider.FallbackDescription {
		t.Errorf("Description = %q, want fallback", out.Description)
	}
}

func TestGenerate_SpeechTextTruncated(t *testing.T) {
	long := strings.Repeat("ä", provider.MaxSpeechRunes+200)
	speech := &fakeSpeech{ok: false}
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: long}, Speech: speech, Voice: "Puck"})

	out, err := s.Generate(context.Background(), domain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(speech.gotText); n != provider.MaxSpeechRunes {
		t.Errorf("speech text runes = %d, want %d", n, provider.MaxSpeechRunes)
	}
	if speech.gotVoice != "Puck" {
		t.Errorf("voice = %q, want Puck", speech.gotVoice)
	}
	if out.Description != long {
		t.Error("description should keep the full text")
	}
	if out.State != StateReady || out.HasAudio() {
		t.Errorf("state = %s, audio = %v; want ready without audio", out.State, out.HasAudio())
	}
	if err := s.Play(context.Background()); !errors.Is(err, domain.ErrNoAudio) {
		t.Errorf("Play() err = %v, want ErrNoAudio", err)
	}
}

func TestGenerate_EmptyAudioIsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		speech *fakeSpeech
	}{
		{name: "flagged absent", speech: &fakeSpeech{ok: false}},
		{name: "empty payload", speech: &fakeSpeech{payload: "", ok: true}},
		{name: "blank payload", speech: &fakeSpeech{payload: "  \n", ok: true}},
		{name: "zero bytes", speech: &fakeSpeech{payload: pcm.EncodeTransport(nil), ok: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, Config{Describer: &fakeDescriber{text: "Quiet dunes."}, Speech: tt.speech})
			out, err := s.Generate(context.Background(), domain.DefaultParams())
			if err != nil {
				t.Fatal(err)
			}
			if out.State != StateReady || out.HasAudio() || out.Err != nil {
				t.Errorf("outcome = %s, audio %v, err %v; want ready without audio", out.State, out.HasAudio(), out.Err)
			}
			if out.Charged != domain.GenerationCost {
				t.Errorf("Charged = %d, want %d", out.Charged, domain.GenerationCost)
			}
			if err := s.Play(context.Background()); !errors.Is(err, domain.ErrNoAudio) {
				t.Errorf("Play() err = %v, want ErrNoAudio", err)
			}
		})
	}
}

func TestGenerate_InvalidParamsNotCharged(t *testing.T) {
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "ok"}})
	p := domain.DefaultParams()
	p.DurationMinutes = 9

	if _, err := s.Generate(context.Background(), p); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if got := balance(t, s); got != domain.MonthlyGrant {
		t.Errorf("balance = %d, want untouched", got)
	}
}

func TestGenerate_BusyWhileInFlight(t *testing.T) {
	desc := &fakeDescriber{text: "ok", block: make(chan struct{})}
	s := newTestSession(t, Config{Describer: desc})
	events, cancel := s.Subscribe()
	defer cancel()

	done := make(chan *Outcome)
	go func() {
		out, _ := s.Generate(context.Background(), domain.DefaultParams())
		done <- out
	}()

	// wait until the first request reaches the describer
	for {
		tr := <-events
		if tr.To == StateRequesting {
			break
		}
	}

	if _, err := s.Generate(context.Background(), domain.DefaultParams()); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("concurrent Generate() err = %v, want ErrBusy", err)
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() should be empty while a request is in flight")
	}

	close(desc.block)
	out := <-done
	if out.State != StateReady {
		t.Errorf("State = %s, want ready", out.State)
	}
	if got := balance(t, s); got != domain.MonthlyGrant-domain.GenerationCost {
		t.Errorf("balance = %d, want exactly one charge", got)
	}
}

func TestGenerate_DiscardsPreviousAudio(t *testing.T) {
	speech := &fakeSpeech{payload: pcm.EncodeTransport(testPCM), ok: true}
	player := &fakePlayer{}
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "ok"}, Speech: speech, NewPlayer: playerOf(player)})

	if _, err := s.Generate(context.Background(), domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	speech.err = provider.Remotef("fake-speech", "down")
	out, err := s.Generate(context.Background(), domain.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateFailed {
		t.Fatalf("State = %s, want failed", out.State)
	}
	if err := s.Play(context.Background()); !errors.Is(err, domain.ErrNoResult) {
		t.Errorf("Play() err = %v, want ErrNoResult", err)
	}
	if player.stops != 2 {
		t.Errorf("player stops = %d, want one per request", player.stops)
	}
}

func TestPlayAndExport(t *testing.T) {
	player := &fakePlayer{}
	s := newTestSession(t, Config{
		Describer: &fakeDescriber{text: "ok"},
		Speech:    &fakeSpeech{payload: pcm.EncodeTransport(testPCM), ok: true},
		NewPlayer: playerOf(player),
	})

	if err := s.Play(context.Background()); !errors.Is(err, domain.ErrNoResult) {
		t.Errorf("Play() before generation err = %v, want ErrNoResult", err)
	}
	if _, _, err := s.Export(); !errors.Is(err, domain.ErrNoResult) {
		t.Errorf("Export() before generation err = %v, want ErrNoResult", err)
	}

	p := domain.DefaultParams()
	p.Genre = domain.GenreSynthwave
	if _, err := s.Generate(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	if err := s.Play(context.Background()); err != nil {
		t.Fatalf("Play() err = %v", err)
	}
	if player.plays != 1 || len(player.played) != 1 || len(player.played[0]) != 4 {
		t.Errorf("player got %d plays, samples %v", player.plays, player.played)
	}
	if got := player.played[0][2]; got != -1 {
		t.Errorf("sample 2 = %v, want -1", got)
	}

	name, data, err := s.Export()
	if err != nil {
		t.Fatalf("Export() err = %v", err)
	}
	if want := wav.ExportName("AniGen", string(domain.GenreSynthwave), testNow); name != want {
		t.Errorf("name = %q, want %q", name, want)
	}
	if len(data) != wav.HeaderSize+len(testPCM) {
		t.Errorf("len(data) = %d, want %d", len(data), wav.HeaderSize+len(testPCM))
	}
}

func TestPlay_Disabled(t *testing.T) {
	s := newTestSession(t, Config{
		Describer: &fakeDescriber{text: "ok"},
		Speech:    &fakeSpeech{payload: pcm.EncodeTransport(testPCM), ok: true},
	})
	if _, err := s.Generate(context.Background(), domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if err := s.Play(context.Background()); !errors.Is(err, ErrPlaybackDisabled) || !errors.Is(err, domain.ErrPlayback) {
		t.Errorf("Play() err = %v, want ErrPlaybackDisabled", err)
	}
	s.Stop()
}

func TestSaveTheme(t *testing.T) {
	store := vault.NewMemoryStore()
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "Moonlit harbor."}, Vault: store})

	if _, err := s.SaveTheme(context.Background()); !errors.Is(err, domain.ErrNoResult) {
		t.Errorf("SaveTheme() before generation err = %v, want ErrNoResult", err)
	}

	p := domain.DefaultParams()
	p.Mood = domain.MoodEpic
	if _, err := s.Generate(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	theme, err := s.SaveTheme(context.Background())
	if err != nil {
		t.Fatalf("SaveTheme() err = %v", err)
	}
	if theme.ID == "" || theme.AccountID != "acct-1" || theme.Mood != domain.MoodEpic || !theme.Timestamp.Equal(testNow) {
		t.Errorf("theme = %+v", theme)
	}

	themes, err := store.Themes(context.Background(), "acct-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(themes) != 1 || themes[0].Description != "Moonlit harbor." {
		t.Errorf("vault = %+v", themes)
	}
}

func TestGenerateImage(t *testing.T) {
	img := []byte("\x89PNG fake")
	s := newTestSession(t, Config{
		Describer: &fakeDescriber{text: "ok"},
		Imager:    &fakeImager{img: img},
		ImageCost: 2,
	})
	events, cancel := s.Subscribe()
	defer cancel()

	prompt := domain.ImagePrompt{Character: "fox spirit", Environment: "shrine at dusk"}
	out, err := s.GenerateImage(context.Background(), prompt)
	if err != nil {
		t.Fatalf("GenerateImage() err = %v", err)
	}
	if out.State != StateReady || string(out.Image) != string(img) {
		t.Errorf("outcome = %+v", out)
	}
	if got := balance(t, s); got != domain.MonthlyGrant-2 {
		t.Errorf("balance = %d, want %d", got, domain.MonthlyGrant-2)
	}
	for _, tr := range collect(events) {
		if tr.Kind != KindImage {
			t.Errorf("transition kind = %s, want image", tr.Kind)
		}
	}
	if s.State() != StateIdle {
		t.Errorf("music state = %s, want idle", s.State())
	}
	last, ok := s.LastImage()
	if !ok || last.RequestID != out.RequestID {
		t.Error("LastImage() does not return the latest outcome")
	}

	if _, err := s.GenerateImage(context.Background(), domain.ImagePrompt{Character: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing environment err = %v, want ErrInvalidInput", err)
	}
}

func TestGenerateImage_RejectedAndFailed(t *testing.T) {
	imager := &fakeImager{err: provider.Remotef("fake-imager", "blocked")}
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "ok"}, Imager: imager, ImageCost: 5})
	prompt := domain.ImagePrompt{Character: "a", Environment: "b"}

	out, err := s.GenerateImage(context.Background(), prompt)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateFailed || !errors.Is(out.Err, domain.ErrRemoteGeneration) {
		t.Errorf("first outcome = %s / %v, want failed remote", out.State, out.Err)
	}

	out, err = s.GenerateImage(context.Background(), prompt)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateRejected {
		t.Errorf("second outcome = %s, want rejected with 4 credits left", out.State)
	}
}

func TestGenerateImage_NotConfigured(t *testing.T) {
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "ok"}})
	_, err := s.GenerateImage(context.Background(), domain.ImagePrompt{Character: "a", Environment: "b"})
	if !errors.Is(err, domain.ErrRemoteGeneration) {
		t.Errorf("err = %v, want ErrRemoteGeneration", err)
	}
	if got := balance(t, s); got != domain.MonthlyGrant {
		t.Errorf("balance = %d, want untouched", got)
	}
}

func TestSubscribe_CancelIsIdempotent(t *testing.T) {
	s := newTestSession(t, Config{Describer: &fakeDescriber{text: "ok"}})
	ch, cancel := s.Subscribe()
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if _, err := s.Generate(context.Background(), domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
}

func TestManager_SessionPerAccount(t *testing.T) {
	book := ledger.NewBook(ledger.NewMemoryStore(), ledger.DefaultPolicy(), ledger.WithClock(fixedNow))
	m, err := NewManager(book, Config{Describer: &fakeDescriber{text: "ok"}, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	a1, err := m.Session(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := m.Session(ctx, "alice")
	if a1 != a2 {
		t.Error("Session() returned different sessions for the same account")
	}
	b, err := m.Session(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a1.Generate(ctx, domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if got := balance(t, a1); got != 6 {
		t.Errorf("alice balance = %d, want 6", got)
	}
	if got := balance(t, b); got != domain.MonthlyGrant {
		t.Errorf("bob balance = %d, want untouched", got)
	}

	if _, err := m.Session(ctx, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty account err = %v, want ErrInvalidInput", err)
	}
}

func TestNewManager_RequiresDescriber(t *testing.T) {
	book := ledger.NewBook(ledger.NewMemoryStore(), ledger.DefaultPolicy())
	if _, err := NewManager(book, Config{}); err == nil {
		t.Error("NewManager() without describer should fail")
	}
}

func TestManager_PlaybackIsPerAccount(t *testing.T) {
	book := ledger.NewBook(ledger.NewMemoryStore(), ledger.DefaultPolicy(), ledger.WithClock(fixedNow))
	var (
		mu      sync.Mutex
		players []*fakePlayer
	)
	m, err := NewManager(book, Config{
		Describer: &fakeDescriber{text: "ok"},
		Speech:    &fakeSpeech{payload: pcm.EncodeTransport(testPCM), ok: true},
		NewPlayer: func() Player {
			mu.Lock()
			defer mu.Unlock()
			p := &fakePlayer{}
			players = append(players, p)
			return p
		},
		Now: fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	alice, err := m.Session(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := m.Session(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(players) != 2 {
		t.Fatalf("players created = %d, want one per session", len(players))
	}
	alicePlayer, bobPlayer := players[0], players[1]

	if _, err := alice.Generate(ctx, domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if err := alice.Play(ctx); err != nil {
		t.Fatalf("alice Play() err = %v", err)
	}
	aliceStops := alicePlayer.Stops()

	if _, err := bob.Generate(ctx, domain.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	bob.Stop()

	if got := alicePlayer.Stops(); got != aliceStops {
		t.Errorf("alice player stops = %d after bob's actions, want %d", got, aliceStops)
	}
	if got := bobPlayer.Stops(); got != 2 {
		t.Errorf("bob player stops = %d, want 2", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() err = %v", err)
	}
	if !alicePlayer.closed || !bobPlayer.closed {
		t.Error("Close() should close every session's player")
	}
}
