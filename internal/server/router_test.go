package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/resumehub/apiserver/config"
	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/services"
	"github.com/resumehub/apiserver/internal/testutil"
	"github.com/resumehub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const allowedOrigin = "https://fron-api.onrender.com"

type harness struct {
	t      *testing.T
	router http.Handler
	users  *testutil.UserRepo
	events *testutil.Publisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Config{
		JWT: config.JWTConfig{
			Secret:       "router-test-secret",
			TTL:          15 * time.Minute,
			CookieName:   "access_token",
			CookieSecure: true,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{
			allowedOrigin,
			"https://fastapi-auth-crud-haf0.onrender.com",
		}},
	}

	users := testutil.NewUserRepo()
	events := &testutil.Publisher{}
	deps := Dependencies{
		Users:   services.NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost)),
		Resumes: services.NewResumeService(testutil.NewResumeRepo(users), events, nil),
		Tokens:  auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL),
	}
	return &harness{
		t:      t,
		router: NewRouter(cfg, testutil.DiscardLogger(), deps),
		users:  users,
		events: events,
	}
}

func (h *harness) request(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func credentials(email, password string) string {
	return `{"email":"` + email + `","password":"` + password + `"}`
}

// signup registers and logs in, returning the access token cookie.
func (h *harness) signup(email, password string) *http.Cookie {
	h.t.Helper()
	require.Equal(h.t, http.StatusOK, h.request(http.MethodPost, "/register", credentials(email, password), nil).Code)

	rec := h.request(http.MethodPost, "/login", credentials(email, password), nil)
	require.Equal(h.t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(h.t, cookies, 1)
	return cookies[0]
}

func (h *harness) createResume(cookie *http.Cookie, title, context string) types.Resume {
	h.t.Helper()
	body, err := json.Marshal(map[string]string{"title": title, "context": context})
	require.NoError(h.t, err)

	rec := h.request(http.MethodPost, "/resumes", string(body), cookie)
	require.Equal(h.t, http.StatusOK, rec.Code)
	var resume types.Resume
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resume))
	return resume
}

func resumePath(id int) string {
	return "/resumes/" + strconv.Itoa(id)
}

func TestRoot(t *testing.T) {
	h := newHarness(t)

	rec := h.request(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Resume API!"}`, rec.Body.String())

	rec = h.request(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDuplicateRegistration(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, http.StatusOK, h.request(http.MethodPost, "/register", credentials("a@x.io", "pw1"), nil).Code)
	rec := h.request(http.MethodPost, "/register", credentials("a@x.io", "pw2"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, h.users.Count())
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	h := newHarness(t)

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(credentials("race@x.io", "pw")))
			rec := httptest.NewRecorder()
			h.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusBadRequest:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflict)
	assert.Equal(t, 1, h.users.Count())
}

func TestBadLoginSetsNoCookie(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.request(http.MethodPost, "/register", credentials("a@x.io", "pw1"), nil).Code)

	for _, body := range []string{credentials("a@x.io", "nope"), credentials("b@x.io", "pw1")} {
		rec := h.request(http.MethodPost, "/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginThenMe(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")

	rec := h.request(http.MethodGet, "/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Email string `json:"email"`
		ID    int    `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice@x.io", me.Email)
	assert.Positive(t, me.ID)
}

func TestTamperedCookieRejected(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")

	parts := strings.Split(cookie.Value, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	rec := h.request(http.MethodGet, "/me", "", &http.Cookie{Name: cookie.Name, Value: forged})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

	rec = h.request(http.MethodGet, "/resumes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing token"}`, rec.Body.String())
}

func TestResumeRoundTrip(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")

	me := h.request(http.MethodGet, "/me", "", cookie)
	var owner struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &owner))

	created := h.createResume(cookie, "Backend CV", "Go, Postgres")
	assert.Positive(t, created.ID)

	rec := h.request(http.MethodGet, resumePath(created.ID), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Backend CV", got.Title)
	assert.Equal(t, "Go, Postgres", got.Context)
	assert.Equal(t, owner.ID, got.UserID)

	rec = h.request(http.MethodGet, "/resumes", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []types.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []types.Resume{got}, list)

	msgs := h.events.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, services.DefaultEventsChannel, msgs[0].Channel)
	assert.Equal(t, string(types.ResumeCreated), msgs[0].Attrs["type"])
}

func TestOwnerIDIgnoredFromBody(t *testing.T) {
	h := newHarness(t)
	alice := h.signup("alice@x.io", "pw1")
	h.signup("bob@x.io", "pw1")

	rec := h.request(http.MethodPost, "/resumes", `{"title":"t","context":"c","user_id":2}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var created types.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.UserID)
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	h := newHarness(t)
	alice := h.signup("alice@x.io", "pw1")
	bob := h.signup("bob@x.io", "pw1")

	resume := h.createResume(alice, "CV", "hi")
	path := resumePath(resume.ID)

	checks := []struct {
		method, path, body string
	}{
		{http.MethodGet, path, ""},
		{http.MethodPut, path, `{"title":"x","context":"y"}`},
		{http.MethodDelete, path, ""},
		{http.MethodPost, path + "/improve", ""},
	}
	for _, c := range checks {
		rec := h.request(c.method, c.path, c.body, bob)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", c.method, c.path)
	}

	rec := h.request(http.MethodGet, "/resumes", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = h.request(http.MethodGet, path, "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var untouched types.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &untouched))
	assert.Equal(t, resume, untouched)
}

func TestImproveAppendsEachTime(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")
	resume := h.createResume(cookie, "CV", "hi")

	for _, want := range []string{"hi [Improved]", "hi [Improved] [Improved]"} {
		rec := h.request(http.MethodPost, resumePath(resume.ID)+"/improve", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			OK              bool   `json:"ok"`
			ImprovedContext string `json:"improved_context"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, want, resp.ImprovedContext)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")
	resume := h.createResume(cookie, "CV", "hi")

	rec := h.request(http.MethodPut, resumePath(resume.ID), `{"title":"CV 2","context":"new"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated types.Resume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, types.Resume{ID: resume.ID, Title: "CV 2", Context: "new", UserID: resume.UserID}, updated)

	rec = h.request(http.MethodDelete, resumePath(resume.ID), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = h.request(http.MethodDelete, resumePath(resume.ID), "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNonIntegerResumeID(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")

	rec := h.request(http.MethodGet, "/resumes/abc", "", cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResumeIDOutsideColumnRangeIsNotFound(t *testing.T) {
	h := newHarness(t)
	cookie := h.signup("alice@x.io", "pw1")

	for _, path := range []string{"/resumes/0", "/resumes/-1", "/resumes/3000000000"} {
		rec := h.request(http.MethodGet, path, "", cookie)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestCORS(t *testing.T) {
	h := newHarness(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/resumes", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(allowedOrigin)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	rec = preflight("https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", allowedOrigin)
	simple := httptest.NewRecorder()
	h.router.ServeHTTP(simple, req)
	assert.Equal(t, http.StatusOK, simple.Code)
	assert.Equal(t, allowedOrigin, simple.Header().Get("Access-Control-Allow-Origin"))
}
