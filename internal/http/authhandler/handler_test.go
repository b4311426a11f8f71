package authhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chebah-Amine/bid-marketplace/internal/http/authmw"
	"github.com/Chebah-Amine/bid-marketplace/internal/models"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/account"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

type stubAccounts struct {
	register     func(ctx context.Context, username, email, password, confirmation string) (*models.User, error)
	authenticate func(ctx context.Context, username, password string) (*models.User, error)
}

var _ account.IAccountService = (*stubAccounts)(nil)

func (s *stubAccounts) Register(ctx context.Context, username, email, password, confirmation string) (*models.User, error) {
	return s.register(ctx, username, email, password, confirmation)
}

func (s *stubAccounts) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	return s.authenticate(ctx, username, password)
}

func newRouter(svc account.IAccountService, sessions *session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(authmw.Resolve(sessions))
	New(svc, sessions, time.Hour).Register(r)
	return r
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRegisterPasswordMismatch(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubAccounts{
		register: func(context.Context, string, string, string, string) (*models.User, error) {
			return nil, account.ErrPasswordMismatch
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/register", url.Values{
		"username":     {"testuser"},
		"email":        {"test@example.com"},
		"password":     {"password123"},
		"confirmation": {"different"},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Passwords must match.", resp.Message)
}

func TestRegisterUsernameTaken(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubAccounts{
		register: func(context.Context, string, string, string, string) (*models.User, error) {
			return nil, account.ErrUsernameTaken
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/register", url.Values{
		"username":     {"testuser"},
		"password":     {"password123"},
		"confirmation": {"password123"},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Username already taken.", resp.Message)
}

func TestRegisterOpensSessionAndRedirects(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	mock.Regexp().ExpectHSet(`sess:.+`, "user_id", "1", "username", "testuser").SetVal(2)
	mock.Regexp().ExpectExpire(`sess:.+`, time.Hour).SetVal(true)

	svc := &stubAccounts{
		register: func(_ context.Context, username, email, password, confirmation string) (*models.User, error) {
			assert.Equal(t, "testuser", username)
			assert.Equal(t, password, confirmation)
			return &models.User{ID: 1, Username: username, Email: email}, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/register", url.Values{
		"username":     {"testuser"},
		"email":        {"test@example.com"},
		"password":     {"password123"},
		"confirmation": {"password123"},
	}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginInvalidCredentials(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubAccounts{
		authenticate: func(context.Context, string, string) (*models.User, error) {
			return nil, account.ErrInvalidCredentials
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/login", url.Values{
		"username": {"testuser"},
		"password": {"wrong"},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid username and/or password.", resp.Message)
}

func TestLoginSuccessRedirectsToIndex(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	mock.Regexp().ExpectHSet(`sess:.+`, "user_id", "7", "username", "amine").SetVal(2)
	mock.Regexp().ExpectExpire(`sess:.+`, time.Hour).SetVal(true)

	svc := &stubAccounts{
		authenticate: func(_ context.Context, username, password string) (*models.User, error) {
			assert.Equal(t, "amine", username)
			assert.Equal(t, "password123", password)
			return &models.User{ID: 7, Username: "amine"}, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postForm("/login", url.Values{
		"username": {"amine"},
		"password": {"password123"},
	}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogoutDeletesSessionAndClearsCookie(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	mock.ExpectHGetAll("sess:tok").SetVal(map[string]string{
		"user_id":  "7",
		"username": "amine",
	})
	mock.ExpectDel("sess:tok", "flash:tok").SetVal(2)

	router := newRouter(&stubAccounts{}, session.NewStore(rdc, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0, "cookie must be expired")
}
