package notifications_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forumnotify/pkg/broadcast"
	"github.com/dmitrymomot/forumnotify/pkg/clientip"
	"github.com/dmitrymomot/forumnotify/pkg/jwt"
	"github.com/dmitrymomot/forumnotify/pkg/notifications"
	"github.com/dmitrymomot/forumnotify/pkg/ratelimiter"

	api "github.com/dmitrymomot/forumnotify/modules/notifications"
)

const (
	alice int64 = 1
	bob   int64 = 2
	admin int64 = 3
	ghost int64 = 99
)

type fixture struct {
	store  *notifications.MemoryStorage
	bus    *broadcast.Bus[int64, notifications.Event]
	svc    *notifications.Service
	tokens *jwt.Service
	router http.Handler
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	store := notifications.NewMemoryStorage(
		notifications.Profile{ID: alice, Username: "alice"},
		notifications.Profile{ID: bob, Username: "bob"},
		notifications.Profile{ID: admin, Username: "admin", Role: api.RoleAdmin},
	)
	bus := broadcast.New[int64, notifications.Event]()
	t.Cleanup(bus.Close)
	svc := notifications.NewService(store, store, store, bus)
	tokens, err := jwt.NewFromString("test-secret")
	require.NoError(t, err)

	return &fixture{
		store:  store,
		bus:    bus,
		svc:    svc,
		tokens: tokens,
		router: clientip.NewResolver().Middleware(api.New(svc, bus, tokens, opts...).Handle()),
	}
}

func (f *fixture) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := f.tokens.Issue(userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) follow(t *testing.T, recipient, actor int64) int64 {
	t.Helper()
	id, created, err := f.svc.Create(t.Context(), notifications.Follow(recipient, actor, "actor"+strconv.FormatInt(actor, 10)))
	require.NoError(t, err)
	require.True(t, created)
	return id
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details map[string][]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NotNil(t, env.Data, rec.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	other, err := jwt.NewFromString("other-secret")
	require.NoError(t, err)
	forged, err := other.Issue(alice, "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"foreign signature", forged, http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"valid", f.token(t, alice, ""), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/unread-count", tt.token, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				env := decode(t, rec, nil)
				require.NotNil(t, env.Error)
				assert.Equal(t, "unauthorized", env.Error.Code)
			}
		})
	}

	t.Run("query token is rejected outside the stream", func(t *testing.T) {
		token := f.token(t, alice, "")
		for _, target := range []string{"/unread-count", "/", "/settings"} {
			rec := f.do(t, http.MethodGet, target+"?token="+token, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		}
	})
}

func TestList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.token(t, alice, "")

	first := f.follow(t, alice, bob)
	second := f.follow(t, alice, admin)
	f.follow(t, bob, alice)

	t.Run("newest first with actor", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page notifications.Page
		decode(t, rec, &page)
		assert.Equal(t, 2, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, second, page.Items[0].ID)
		assert.Equal(t, first, page.Items[1].ID)
		require.NotNil(t, page.Items[1].Actor)
		assert.Equal(t, "bob", page.Items[1].Actor.Username)
	})

	t.Run("pagination", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/?page=2&pageSize=1", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page notifications.Page
		decode(t, rec, &page)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 1, page.PageSize)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Items, 1)
		assert.Equal(t, first, page.Items[0].ID)
	})

	t.Run("huge page is an empty page", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/?page=9223372036854775807&pageSize=100", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page notifications.Page
		decode(t, rec, &page)
		assert.Equal(t, 2, page.Total)
		assert.Empty(t, page.Items)
	})

	t.Run("unread only", func(t *testing.T) {
		_, err := f.svc.MarkRead(t.Context(), alice, first)
		require.NoError(t, err)

		rec := f.do(t, http.MethodGet, "/?unreadOnly=true", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page notifications.Page
		decode(t, rec, &page)
		require.Len(t, page.Items, 1)
		assert.Equal(t, second, page.Items[0].ID)
	})

	t.Run("malformed query", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/?page=abc", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/", f.token(t, ghost, ""), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMarkRead(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.token(t, alice, "")
	id := f.follow(t, alice, bob)
	foreign := f.follow(t, bob, alice)

	path := "/" + strconv.FormatInt(id, 10) + "/read"

	var res struct {
		Changed bool `json:"changed"`
	}
	rec := f.do(t, http.MethodPatch, path, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.True(t, res.Changed)

	rec = f.do(t, http.MethodPatch, path, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.False(t, res.Changed, "second transition is a no-op")

	rec = f.do(t, http.MethodPatch, "/"+strconv.FormatInt(foreign, 10)+"/read", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user's notification looks missing")

	rec = f.do(t, http.MethodPatch, "/12345/read", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPatch, "/abc/read", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	count, err := f.svc.UnreadCount(t.Context(), bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "foreign notification stays unread")
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.token(t, alice, "")
	f.follow(t, alice, bob)
	f.follow(t, alice, admin)

	var count struct {
		UnreadCount int `json:"unreadCount"`
	}
	rec := f.do(t, http.MethodGet, "/unread-count", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &count)
	assert.Equal(t, 2, count.UnreadCount)

	var res struct {
		Updated int `json:"updated"`
	}
	rec = f.do(t, http.MethodPatch, "/read-all", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Updated)

	rec = f.do(t, http.MethodPatch, "/read-all", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &res)
	assert.Zero(t, res.Updated)

	rec = f.do(t, http.MethodGet, "/unread-count", token, "")
	decode(t, rec, &count)
	assert.Zero(t, count.UnreadCount)
}

func TestSettings(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	token := f.token(t, alice, "")

	t.Run("defaults", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/settings", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var st notifications.Settings
		decode(t, rec, &st)
		assert.True(t, st.FollowEnabled)
		assert.True(t, st.SystemEnabled)
		assert.False(t, st.QuietHoursEnabled)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/settings", token, `{"followEnabled":false,"quietHoursStart":22}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st notifications.Settings
		decode(t, rec, &st)
		assert.False(t, st.FollowEnabled)
		assert.True(t, st.MentionEnabled)
		assert.Equal(t, 22, st.QuietHoursStart)
	})

	rejected := []struct {
		name string
		body string
		code string
	}{
		{"unknown field", `{"pushEnabled":true}`, "bad_request"},
		{"non boolean toggle", `{"followEnabled":"no"}`, "bad_request"},
		{"null value", `{"followEnabled":null}`, "bad_request"},
		{"fractional hour", `{"quietHoursEnd":7.5}`, "bad_request"},
		{"hour out of range", `{"quietHoursEnd":24}`, "validation_error"},
		{"negative hour", `{"quietHoursStart":-1}`, "validation_error"},
		{"not an object", `[]`, "bad_request"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPatch, "/settings", token, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec, nil)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	t.Run("rejected patch changes nothing", func(t *testing.T) {
		st, err := f.svc.Settings().Get(t.Context(), alice)
		require.NoError(t, err)
		assert.Equal(t, 22, st.QuietHoursStart)
		assert.Equal(t, notifications.DefaultSettings(alice, time.Now()).QuietHoursEnd, st.QuietHoursEnd)
	})

	t.Run("disabled kind suppresses creation", func(t *testing.T) {
		_, created, err := f.svc.Create(t.Context(), notifications.Follow(alice, bob, "bob"))
		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestCreateSystem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adminToken := f.token(t, admin, api.RoleAdmin)

	t.Run("requires admin role", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/system", f.token(t, alice, ""), `{"userId":2,"title":"Hi"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("role is checked before the body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/system", f.token(t, alice, ""), `{"userId":`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		env := decode(t, rec, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "forbidden", env.Error.Code)

		rec = f.do(t, http.MethodPost, "/system", "", `{"userId":`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/system", adminToken, `{"userId":2,"title":"Maintenance","content":"Tonight"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res struct {
			ID      int64 `json:"id"`
			Created bool  `json:"created"`
		}
		decode(t, rec, &res)
		assert.True(t, res.Created)
		assert.Positive(t, res.ID)
	})

	t.Run("suppressed by recipient", func(t *testing.T) {
		off := false
		_, err := f.svc.Settings().Update(t.Context(), alice, notifications.SettingsPatch{SystemEnabled: &off})
		require.NoError(t, err)

		rec := f.do(t, http.MethodPost, "/system", adminToken, `{"userId":1,"title":"Maintenance"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Created bool `json:"created"`
		}
		decode(t, rec, &res)
		assert.False(t, res.Created)
	})

	t.Run("validation", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/system", adminToken, `{"userId":2,"title":""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Contains(t, env.Error.Details, "title")
	})

	t.Run("unknown recipient", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/system", adminToken, `{"userId":99,"title":"Hi"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStreamRateLimit(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	observer := &recordingObserver{}
	f := newFixture(t, api.WithStreamLimiter(bucket), api.WithObserver(observer))

	// Unknown user: consumes the only token without opening a stream.
	rec := f.do(t, http.MethodGet, "/stream", f.token(t, ghost, ""), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/stream", f.token(t, ghost, ""), "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	env := decode(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "too_many_requests", env.Error.Code)
	assert.Equal(t, []string{"unknown_user", "rate_limited"}, observer.rejections())
}
