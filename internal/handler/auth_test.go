package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamberlab/chamber-reservation/internal/config"
	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/repository"
	"github.com/chamberlab/chamber-reservation/internal/utils"
)

func loginRequest(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func userRow(t *testing.T, status string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword("secret", 4)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "status", "created_at", "updated_at"}).
		AddRow(1, "alice", nil, hash, model.RoleUser, status, now, now)
}

func TestLoginStatusGating(t *testing.T) {
	cases := []struct {
		status   string
		wantCode int
		wantErr  string
	}{
		{model.UserStatusPending, http.StatusForbidden, "account awaiting admin approval"},
		{model.UserStatusRejected, http.StatusForbidden, "account has been rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
				WithArgs("alice").
				WillReturnRows(userRow(t, tc.status))

			h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4},
				repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)

			c, rec := loginRequest(t, `{"username":"alice","password":"secret"}`)
			require.NoError(t, h.Login(c))
			assert.Equal(t, tc.wantCode, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantErr, body["error"])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLoginActiveIssuesTokenPair(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("alice").
		WillReturnRows(userRow(t, model.UserStatusActive))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4},
		repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)

	c, rec := loginRequest(t, `{"username":"alice","password":"secret"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("alice").
		WillReturnRows(userRow(t, model.UserStatusActive))

	h := NewAuthHandler(config.Config{JWTSecret: "s", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4},
		repository.NewUserRepo(db), repository.NewTokenRepo(db), nil)

	c, rec := loginRequest(t, `{"username":"alice","password":"wrong"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
