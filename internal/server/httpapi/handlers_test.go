package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/authvault/authvault/internal/common"
	"github.com/authvault/authvault/internal/server/models"
	"github.com/authvault/authvault/internal/server/services"
)

// ---- fakes ----

type fakeAuth struct {
	registerOut *models.User
	registerErr error

	loginOut *services.TokenPair
	loginErr error

	refreshOut *services.TokenPair
	refreshErr error

	logoutErr error

	authOut *models.User
	authErr error

	gotEmail       string
	gotPassword    string
	gotRefresh     string
	gotAccessToken string
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) (*models.User, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.registerOut, f.registerErr
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.loginOut, f.loginErr
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.gotRefresh = refreshToken
	return f.refreshOut, f.refreshErr
}

func (f *fakeAuth) Logout(ctx context.Context, refreshToken string) error {
	f.gotRefresh = refreshToken
	return f.logoutErr
}

func (f *fakeAuth) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	f.gotAccessToken = accessToken
	return f.authOut, f.authErr
}

type fakeStorage struct {
	out *models.UploadResult
	err error

	gotUserID      string
	gotFilename    string
	gotContentType string
	gotBody        []byte
}

func (f *fakeStorage) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (*models.UploadResult, error) {
	f.gotUserID, f.gotFilename, f.gotContentType = userID, filename, contentType
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.gotBody = b
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(context.Context) error { return f.err }

// ---- helpers ----

func newTestServer(a *fakeAuth, st *fakeStorage, db pinger) *Server {
	if db == nil {
		db = &fakePinger{}
	}
	return &Server{
		address: "127.0.0.1:0",
		logger:  nopLogger{},
		auth:    a,
		storage: st,
		db:      db,
	}
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

// jsonRequest builds a request with a JSON body. Pass a string to send a raw,
// possibly malformed body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	return httptest.NewRequest(method, path, rd)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v (body=%s)", err, rec.Body.String())
	}
	return resp.Error
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create multipart part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write multipart content: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// ---- tests ----

func TestRegister_Created(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &fakeAuth{registerOut: &models.User{ID: "u1", Email: "alice@example.com", CreatedAt: created}}
	s := newTestServer(a, &fakeStorage{}, nil)

	rec := serve(s, jsonRequest(t, "POST", "/auth/register",
		credentialsRequest{Email: "alice@example.com", Password: "SecurePassword123"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	var resp userResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "u1" || resp.Email != "alice@example.com" || !resp.CreatedAt.Equal(created) {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if a.gotEmail != "alice@example.com" || a.gotPassword != "SecurePassword123" {
		t.Fatalf("credentials not forwarded: email=%q password=%q", a.gotEmail, a.gotPassword)
	}
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCode int
		wantErr  string
	}{
		{
			name:     "duplicate email",
			body:     credentialsRequest{Email: "a@b.c", Password: "longenough"},
			err:      common.ErrEmailTaken,
			wantCode: http.StatusConflict,
			wantErr:  "EMAIL_TAKEN",
		},
		{
			name:     "validation failure",
			body:     credentialsRequest{Email: "a@b.c", Password: "short"},
			err:      fmt.Errorf("%w: password must be at least 8 characters", common.ErrValidation),
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "VALIDATION",
		},
		{
			name:     "storage failure",
			body:     credentialsRequest{Email: "a@b.c", Password: "longenough"},
			err:      common.ErrorInternal,
			wantCode: http.StatusInternalServerError,
			wantErr:  "INTERNAL",
		},
		{
			name:     "malformed body",
			body:     "{not json",
			wantCode: http.StatusBadRequest,
			wantErr:  "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAuth{registerErr: tt.err}, &fakeStorage{}, nil)
			rec := serve(s, jsonRequest(t, "POST", "/auth/register", tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("want %d, got %d (body=%s)", tt.wantCode, rec.Code, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.wantErr {
				t.Fatalf("want error code %q, got %+v", tt.wantErr, e)
			}
		})
	}
}

func TestLogin_ReturnsTokenPair(t *testing.T) {
	a := &fakeAuth{loginOut: &services.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: 900}}
	s := newTestServer(a, &fakeStorage{}, nil)

	rec := serve(s, jsonRequest(t, "POST", "/auth/login",
		credentialsRequest{Email: "alice@example.com", Password: "pw-longenough"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"token_type":"bearer"`) {
		t.Fatalf("missing bearer token type: %s", body)
	}
	var resp tokenResponse
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "A" || resp.RefreshToken != "R" || resp.ExpiresIn != 900 {
		t.Fatalf("unexpected pair: %+v", resp)
	}
}

func TestLogin_Unauthorized(t *testing.T) {
	s := newTestServer(&fakeAuth{loginErr: common.ErrInvalidCredentials}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "POST", "/auth/login",
		credentialsRequest{Email: "alice@example.com", Password: "wrong-password"}))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Code != "INVALID_CREDENTIALS" || e.Message != "invalid email or password" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestLogin_InternalError(t *testing.T) {
	s := newTestServer(&fakeAuth{loginErr: common.ErrorInternal}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "POST", "/auth/login",
		credentialsRequest{Email: "alice@example.com", Password: "pw-longenough"}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "INTERNAL" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	a := &fakeAuth{refreshOut: &services.TokenPair{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: 900}}
	s := newTestServer(a, &fakeStorage{}, nil)

	rec := serve(s, jsonRequest(t, "POST", "/auth/refresh", refreshRequest{RefreshToken: "R1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if a.gotRefresh != "R1" {
		t.Fatalf("refresh token not forwarded: %q", a.gotRefresh)
	}
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "A2" || resp.RefreshToken != "R2" {
		t.Fatalf("unexpected pair: %+v", resp)
	}
}

func TestRefresh_UnauthorizedOnTokenErrors(t *testing.T) {
	for _, cause := range []error{
		common.ErrInvalidToken,
		common.ErrTokenExpired,
		common.ErrTokenRevoked,
		common.ErrWrongTokenType,
	} {
		t.Run(cause.Error(), func(t *testing.T) {
			s := newTestServer(&fakeAuth{refreshErr: cause}, &fakeStorage{}, nil)
			rec := serve(s, jsonRequest(t, "POST", "/auth/refresh", refreshRequest{RefreshToken: "R1"}))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", rec.Code)
			}
			e := decodeError(t, rec)
			if e.Code != "INVALID_REFRESH_TOKEN" || e.Message != "invalid refresh token" {
				t.Fatalf("cause must not leak: %+v", e)
			}
		})
	}
}

func TestRefresh_InternalError(t *testing.T) {
	s := newTestServer(&fakeAuth{refreshErr: common.ErrorInternal}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "POST", "/auth/refresh", refreshRequest{RefreshToken: "R1"}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

func TestLogout_NoContent(t *testing.T) {
	a := &fakeAuth{}
	s := newTestServer(a, &fakeStorage{}, nil)

	rec := serve(s, jsonRequest(t, "POST", "/auth/logout", refreshRequest{RefreshToken: "R1"}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	if a.gotRefresh != "R1" {
		t.Fatalf("refresh token not forwarded: %q", a.gotRefresh)
	}
}

func TestLogout_BadBody(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "POST", "/auth/logout", "{"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestLogout_StoreError(t *testing.T) {
	s := newTestServer(&fakeAuth{logoutErr: errors.New("db down")}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "POST", "/auth/logout", refreshRequest{RefreshToken: "R1"}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

func TestWhoAmI_RequiresBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic YWxpY2U6cHc="},
		{"bare token", "tok-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAuth{}
			s := newTestServer(a, &fakeStorage{}, nil)
			req := jsonRequest(t, "GET", "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tt.header)
			}
			rec := serve(s, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("want 401, got %d", rec.Code)
			}
			if a.gotAccessToken != "" {
				t.Fatalf("token should not reach the service: %q", a.gotAccessToken)
			}
		})
	}
}

func TestWhoAmI_RejectsBadToken(t *testing.T) {
	a := &fakeAuth{authErr: common.ErrInvalidToken}
	s := newTestServer(a, &fakeStorage{}, nil)

	req := jsonRequest(t, "GET", "/auth/me", nil)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"bad-token")
	rec := serve(s, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Code != "UNAUTHORIZED" || e.Message != "could not validate credentials" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if a.gotAccessToken != "bad-token" {
		t.Fatalf("token not forwarded: %q", a.gotAccessToken)
	}
}

func TestWhoAmI_InternalOnLookupFailure(t *testing.T) {
	a := &fakeAuth{authErr: common.ErrorInternal}
	s := newTestServer(a, &fakeStorage{}, nil)

	req := jsonRequest(t, "GET", "/auth/me", nil)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"tok-1")
	rec := serve(s, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

func TestWhoAmI_ReturnsUser(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &fakeAuth{authOut: &models.User{ID: "u1", Email: "alice@example.com", CreatedAt: created}}
	s := newTestServer(a, &fakeStorage{}, nil)

	req := jsonRequest(t, "GET", "/auth/me", nil)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"tok-1")
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if a.gotAccessToken != "tok-1" {
		t.Fatalf("token not forwarded: %q", a.gotAccessToken)
	}
	var resp userResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "u1" || resp.Email != "alice@example.com" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}
}

func TestUpload_RequiresToken(t *testing.T) {
	st := &fakeStorage{}
	s := newTestServer(&fakeAuth{}, st, nil)

	body, ct := multipartBody(t, "report.pdf", "application/pdf", []byte("content"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := serve(s, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
	if st.gotFilename != "" {
		t.Fatal("upload must not reach storage without a token")
	}
}

func TestUpload_Success(t *testing.T) {
	a := &fakeAuth{authOut: &models.User{ID: "u1", Email: "alice@example.com"}}
	st := &fakeStorage{out: &models.UploadResult{
		Filename: "report.pdf",
		Key:      "1704067200-u1-report.pdf",
		URL:      "https://signed.example/report.pdf",
		Status:   "uploaded",
	}}
	s := newTestServer(a, st, nil)

	body, ct := multipartBody(t, "report.pdf", "application/pdf", []byte("%PDF-1.4 content"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"tok-1")
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	if st.gotUserID != "u1" || st.gotFilename != "report.pdf" || st.gotContentType != "application/pdf" {
		t.Fatalf("upload args: userID=%q filename=%q contentType=%q", st.gotUserID, st.gotFilename, st.gotContentType)
	}
	if string(st.gotBody) != "%PDF-1.4 content" {
		t.Fatalf("file content not streamed: %q", st.gotBody)
	}
	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Key != "1704067200-u1-report.pdf" || resp.Status != "uploaded" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	a := &fakeAuth{authOut: &models.User{ID: "u1"}}
	s := newTestServer(a, &fakeStorage{}, nil)

	req := jsonRequest(t, "POST", "/upload", map[string]string{"not": "a file"})
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"tok-1")
	rec := serve(s, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestUpload_StorageError(t *testing.T) {
	a := &fakeAuth{authOut: &models.User{ID: "u1"}}
	st := &fakeStorage{err: errors.New("put object failed")}
	s := newTestServer(a, st, nil)

	body, ct := multipartBody(t, "report.pdf", "application/pdf", []byte("content"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"tok-1")
	rec := serve(s, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "UPLOAD_FAILED" {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestHealth_OK(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeStorage{}, nil)
	rec := serve(s, jsonRequest(t, "GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestReady_ReflectsDatabase(t *testing.T) {
	s := newTestServer(&fakeAuth{}, &fakeStorage{}, &fakePinger{})
	rec := serve(s, jsonRequest(t, "GET", "/ready", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready":true`) {
		t.Fatalf("want ready, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	s2 := newTestServer(&fakeAuth{}, &fakeStorage{}, &fakePinger{err: errors.New("connection refused")})
	rec2 := serve(s2, jsonRequest(t, "GET", "/ready", nil))
	if rec2.Code != http.StatusServiceUnavailable || !strings.Contains(rec2.Body.String(), `"ready":false`) {
		t.Fatalf("want not ready, got %d (body=%s)", rec2.Code, rec2.Body.String())
	}
}
