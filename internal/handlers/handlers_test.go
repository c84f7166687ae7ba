package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/flowershop/internal/auth"
	"github.com/alextreichler/flowershop/internal/handlers"
	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/imaging"
	"github.com/alextreichler/flowershop/internal/notify"
	"github.com/alextreichler/flowershop/internal/order"
	"github.com/alextreichler/flowershop/internal/search"
	"github.com/alextreichler/flowershop/internal/store"
)

const adminPassword = "hunter22"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// fakeTelegram records sendMessage calls and answers with status.
type fakeTelegram struct {
	*httptest.Server
	mu       sync.Mutex
	messages []map[string]string
	status   int
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	ft := &fakeTelegram{status: http.StatusOK}
	ft.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]string
		_ = json.NewDecoder(r.Body).Decode(&msg)
		ft.mu.Lock()
		ft.messages = append(ft.messages, msg)
		status := ft.status
		ft.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
	}))
	t.Cleanup(ft.Close)
	return ft
}

func (ft *fakeTelegram) Messages() []map[string]string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]map[string]string(nil), ft.messages...)
}

func (ft *fakeTelegram) SetStatus(status int) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.status = status
}

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	store    *store.Store
	telegram *fakeTelegram
	clock    *fakeClock
	routes   *handlers.Routes
}

type envOptions struct {
	secret       string
	telegramOff  bool
	passwordHash string
}

func newRoutes(t *testing.T, s *store.Store, opts envOptions, tg *fakeTelegram, clock *fakeClock, uploadDir string) *handlers.Routes {
	t.Helper()

	codec, err := auth.NewCodec([]byte(opts.secret))
	require.NoError(t, err)

	token, chat := "test-token", "-100"
	if opts.telegramOff {
		token, chat = "", ""
	}
	svc, err := order.NewService(notify.NewTelegram(tg.URL, token, chat), s)
	require.NoError(t, err)

	sessionStore := sessions.NewCookieStore(bytes.Repeat([]byte("k"), 32), bytes.Repeat([]byte("b"), 32))
	sessionStore.Options.HttpOnly = true

	templates := handlers.NewTemplateCache()
	require.NoError(t, templates.Load(nil, "templates"))

	password := adminPassword
	if opts.passwordHash != "" {
		password = ""
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &handlers.Routes{
		Shop: &handlers.ShopHandler{
			Store:        s,
			SessionStore: sessionStore,
			Matcher:      search.Default(),
			Bundle:       i18n.Default(),
		},
		Orders: &handlers.OrderHandler{
			Store:        s,
			SessionStore: sessionStore,
			Orders:       svc,
			Limiter:      handlers.NewRateLimiter(ctx, 3*time.Second, clock.Now),
			Now:          clock.Now,
		},
		Admin: &handlers.AdminHandler{
			Store:        s,
			Codec:        codec,
			Templates:    templates,
			Uploads:      &imaging.Uploads{Dir: uploadDir, URLPrefix: "/uploads/"},
			Validate:     order.NewValidator(),
			Password:     password,
			PasswordHash: opts.passwordHash,
		},
		UploadDir: uploadDir,
	}
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	if opts.secret == "" {
		opts.secret = "test-secret"
	}

	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	tg := newFakeTelegram(t)
	clock := &fakeClock{now: time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)}
	routes := newRoutes(t, s, opts, tg, clock, t.TempDir())

	srv := httptest.NewServer(routes.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{srv: srv, client: client, store: s, telegram: tg, clock: clock, routes: routes}
}

// do sends body as JSON (when not nil) and returns the response with its
// body read.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/api/admin/login", map[string]string{"password": adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) cookie(t *testing.T, name string) *http.Cookie {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
