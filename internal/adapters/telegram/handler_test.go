package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/ledger"
	"hermes/internal/providers"
	"hermes/internal/services/billing"
	"hermes/internal/sessionstate"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/telegram"
)

type fakeBot struct {
	mu       sync.Mutex
	messages []string
	photos   [][]byte
	photoURL []string
	files    map[string][]byte
	handler  func(telegram.Update)
}

func newFakeBot() *fakeBot {
	return &fakeBot{files: map[string][]byte{}}
}

func (f *fakeBot) Start(ctx context.Context) error { return nil }
func (f *fakeBot) Stop()                           {}

func (f *fakeBot) SetHandler(handler func(telegram.Update)) { f.handler = handler }

func (f *fakeBot) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeBot) SendHTML(chatID int64, text string) error {
	return f.SendMessage(chatID, text)
}

func (f *fakeBot) SendPhoto(chatID int64, data []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, data)
	return nil
}

func (f *fakeBot) SendPhotoURL(chatID int64, url string, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photoURL = append(f.photoURL, url)
	return nil
}

func (f *fakeBot) SendChatAction(chatID int64, action string) error { return nil }

func (f *fakeBot) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if data, ok := f.files[fileID]; ok {
		return data, nil
	}
	return nil, errors.ErrNotFound
}

func (f *fakeBot) lastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

type fakeSpeech struct {
	transcript string
	err        error
}

func (f *fakeSpeech) Transcribe(ctx context.Context, videoURL string) (string, error) {
	return f.transcript, f.err
}

type fakeLedger struct {
	mu       sync.Mutex
	accounts []ledger.UserAccount
}

func (f *fakeLedger) RecordUsage(ctx context.Context, user ledger.User, usage ledger.Usage) error {
	return nil
}

func (f *fakeLedger) ListAccounts(ctx context.Context) ([]ledger.UserAccount, error) {
	return f.accounts, nil
}

func (f *fakeLedger) GetAccount(ctx context.Context, userID int64) (*ledger.UserAccount, error) {
	return nil, errors.ErrNotFound
}

func (f *fakeLedger) UserHistory(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	return nil, nil
}

// newTestHandler wires a handler against one httptest provider endpoint
// serving every capability
func newTestHandler(t *testing.T, bot *fakeBot, providerURL string) *Handler {
	t.Helper()

	var doc string
	for _, capability := range []string{"describe", "imagegen", "abcgen", "imagechange", "mergeimage", "summary", "balance"} {
		doc += fmt.Sprintf(`%s:
  provider: test
  providers:
    test:
      url: %s
      key: k
      model: test-model
`, capability, providerURL)
	}

	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	registry, err := providers.NewRegistry(path, logger.Get())
	require.NoError(t, err)

	aiClient := ai.NewClient(registry, config.AIConfig{
		RequestTimeout: 0,
		MaxRetries:     2,
	}, nil, logger.Get())

	billingSvc := billing.NewService(registry, &fakeLedger{}, providerURL, nil)

	return NewHandler(HandlerDeps{
		Bot:       bot,
		AI:        aiClient,
		Billing:   billingSvc,
		Providers: registry,
		Sessions:  sessionstate.New(16),
		Speech:    &fakeSpeech{transcript: "a transcript"},
		Log:       logger.Get(),
	})
}

func message(text string) *telegram.Message {
	msg := &telegram.Message{
		Text: text,
		From: &telegram.User{ID: 7, Username: "alice"},
		Chat: &telegram.Chat{ID: 42},
	}
	msg.ParseCommand()
	return msg
}

func TestHandler_DescribeUsesCachedPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"a cat on a sofa"}}]}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.sessions.RememberImage(42, []byte("\x89PNGdata"))

	h.HandleUpdate(telegram.Update{Message: message("/describe")})

	assert.Equal(t, "a cat on a sofa", bot.lastMessage())
}

func TestHandler_DescribeWithoutPhoto(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{Message: message("/describe")})

	assert.Contains(t, bot.lastMessage(), "No picture found")
}

func TestHandler_ImageGenDeliversPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"images":[{"image_url":{"url":"data:image/png;base64,aGVsbG8="}}]}}]}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.HandleUpdate(telegram.Update{Message: message("/imagegen a fox")})

	require.Len(t, bot.photos, 1)
	assert.Equal(t, []byte("hello"), bot.photos[0])

	// The generated image becomes available for /changelast
	cached, ok := h.sessions.LastGenerated(42)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), cached)
}

func TestHandler_ImageGenWithoutPrompt(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{Message: message("/imagegen")})

	assert.Contains(t, bot.lastMessage(), "provide a prompt")
}

func TestHandler_ImageGenTerminalFailureReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"native_finish_reason":"IMAGE_SAFETY"}]}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.HandleUpdate(telegram.Update{Message: message("/imagegen something")})

	assert.Contains(t, bot.lastMessage(), "IMAGE_SAFETY")
	assert.Empty(t, bot.photos)
}

func TestHandler_ChangeLastWithoutGenerated(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{Message: message("/changelast make it blue")})

	assert.Contains(t, bot.lastMessage(), "No generated image yet")
}

func TestHandler_MergeImageNeedsAlbum(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{Message: message("/mergeimage combine")})
	assert.Contains(t, bot.lastMessage(), "No album found")

	h.sessions.AppendGroupImage(42, "g1", []byte("only-one"))
	h.HandleUpdate(telegram.Update{Message: message("/mergeimage combine")})
	assert.Contains(t, bot.lastMessage(), "at least 2")
}

func TestHandler_PhotoMessageIsCached(t *testing.T) {
	bot := newFakeBot()
	bot.files["file-1"] = []byte("photo-bytes")
	h := newTestHandler(t, bot, "http://unused")

	msg := &telegram.Message{
		From:  &telegram.User{ID: 7},
		Chat:  &telegram.Chat{ID: 42},
		Photo: []telegram.PhotoSize{{FileID: "file-1", Width: 100}},
	}
	msg.ParseCommand()
	h.HandleUpdate(telegram.Update{Message: msg})

	cached, ok := h.sessions.LastImage(42)
	require.True(t, ok)
	assert.Equal(t, []byte("photo-bytes"), cached)
}

func TestHandler_AlbumPhotosAccumulate(t *testing.T) {
	bot := newFakeBot()
	bot.files["f1"] = []byte("a")
	bot.files["f2"] = []byte("b")
	h := newTestHandler(t, bot, "http://unused")

	for _, fileID := range []string{"f1", "f2"} {
		msg := &telegram.Message{
			From:         &telegram.User{ID: 7},
			Chat:         &telegram.Chat{ID: 42},
			Photo:        []telegram.PhotoSize{{FileID: fileID}},
			MediaGroupID: "album-1",
		}
		h.HandleUpdate(telegram.Update{Message: msg})
	}

	assert.Len(t, h.sessions.LatestGroupImages(42), 2)
}

func TestHandler_SummaryFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"key points"}}]}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.HandleUpdate(telegram.Update{Message: message("/summary https://youtu.be/x")})

	assert.Contains(t, bot.lastMessage(), "key points")
}

func TestHandler_SummaryRejectsNonTextOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"see https://img.example.com/out.png"}}]}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.HandleUpdate(telegram.Update{Message: message("/summary https://youtu.be/x")})

	assert.Contains(t, bot.lastMessage(), "Could not summarize")
}

func TestHandler_SummaryTranscriptionFailure(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")
	h.speech = &fakeSpeech{err: errors.New("yt-dlp exploded")}

	h.HandleUpdate(telegram.Update{Message: message("/summary https://youtu.be/x")})

	assert.Contains(t, bot.lastMessage(), "Could not transcribe")
}

func TestHandler_BalanceCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"total_credits":10.0,"total_usage":2.5}}`)
	}))
	defer srv.Close()

	bot := newFakeBot()
	h := newTestHandler(t, bot, srv.URL)

	h.HandleUpdate(telegram.Update{Message: message("/balance")})

	msg := bot.lastMessage()
	assert.Contains(t, msg, "10.00")
	assert.Contains(t, msg, "7.5000")
}

func TestHandler_StatisticsEmpty(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{Message: message("/statistics")})

	assert.Contains(t, bot.lastMessage(), "No usage recorded")
}

func TestHandler_NonMessageUpdateIgnored(t *testing.T) {
	bot := newFakeBot()
	h := newTestHandler(t, bot, "http://unused")

	h.HandleUpdate(telegram.Update{})

	assert.Empty(t, bot.messages)
}
