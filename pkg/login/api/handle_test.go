package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/authz"
	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/login"
	"github.com/certportal/authcore/pkg/notification"
	"github.com/certportal/authcore/pkg/password"
	"github.com/certportal/authcore/pkg/refresh"
	"github.com/certportal/authcore/pkg/tokengen"
	"github.com/certportal/authcore/pkg/verification"
)

type apiEnv struct {
	router   chi.Router
	notifier *notification.MockNotifier
	grants   authz.Repository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	accountRepo := account.NewInMemoryRepository()
	refreshRepo := refresh.NewInMemoryRepository()
	grantRepo := authz.NewInMemoryRepository()
	notifier := notification.NewMockNotifier()
	policy := password.DefaultPolicy()

	accountService := account.NewService(accountRepo, password.NewArgon2Hasher(), policy)
	refreshService := refresh.NewService(refreshRepo)
	verificationService := verification.NewService(accountRepo, verification.WithPolicy(policy))
	tokenGen := tokengen.NewJwtTokenGenerator("test-secret", "authcore-test", "certportal-test")

	loginService := login.NewLoginService(
		accountService,
		verificationService,
		refreshService,
		tokenGen,
		policy,
		notifier,
		15*time.Minute,
		"http://localhost:4000",
	)

	handle := NewHandle(
		loginService,
		accountService,
		authz.NewEngine(grantRepo),
		grantRepo,
		jwtauth.New("HS256", []byte("test-secret"), nil),
		tokengen.NewCookieSetter(true, false),
	)

	router := chi.NewRouter()
	handle.Routes(router)

	return &apiEnv{router: router, notifier: notifier, grants: grantRepo}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokengen.RefreshCookieName {
			return c
		}
	}
	return nil
}

// registerVerified drives the registration and verification endpoints and
// returns the verified account's email.
func (e *apiEnv) registerVerified(t *testing.T, email string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/accounts/register", RegisterRequest{
		FirstName:       "Test",
		LastName:        "User",
		Email:           email,
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		AcceptTerms:     true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	notice, ok := e.notifier.LastTo(email)
	require.True(t, ok)

	rec = e.do(t, http.MethodPost, "/accounts/verify-email", VerifyEmailRequest{
		Token: notice.Data.Data["Token"],
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func (e *apiEnv) authenticate(t *testing.T, email string) (AuthenticateResponse, *http.Cookie) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/accounts/authenticate", AuthenticateRequest{
		Email:    email,
		Password: "Sup3rSecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthenticateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	return resp, cookie
}

func TestAuthenticateFlow(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")

	resp, cookie := env.authenticate(t, "admin@example.com")
	assert.NotEmpty(t, resp.JwtToken)
	assert.Equal(t, "admin@example.com", resp.Email)
	assert.Equal(t, "Admin", resp.Role)
	assert.True(t, resp.IsVerified)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestAuthenticateBadCredentials(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/accounts/authenticate", AuthenticateRequest{
		Email:    "admin@example.com",
		Password: "WrongSecret1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, refreshCookie(rec))
}

func TestRefreshTokenEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")
	_, cookie := env.authenticate(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/accounts/refresh-token", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := refreshCookie(rec)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the consumed cookie is rejected with the same generic
	// failure as any other bad token, nothing hints at reuse detection
	rec = env.do(t, http.MethodPost, "/accounts/refresh-token", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(errors.ErrCodeInvalidCredentials), body["code"])
	assert.Equal(t, "invalid refresh token", body["message"])
	assert.NotContains(t, rec.Body.String(), "REUSE")
}

func TestRefreshTokenWithoutCookie(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/accounts/refresh-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/accounts/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountListIsAdminOnly(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")
	env.registerVerified(t, "student@example.com")

	adminResp, _ := env.authenticate(t, "admin@example.com")
	studentResp, _ := env.authenticate(t, "student@example.com")

	rec := env.do(t, http.MethodGet, "/accounts/", nil, withBearer(adminResp.JwtToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 2)

	rec = env.do(t, http.MethodGet, "/accounts/", nil, withBearer(studentResp.JwtToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAccountIsAdminOnly(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")
	env.registerVerified(t, "student@example.com")

	adminResp, _ := env.authenticate(t, "admin@example.com")
	studentResp, _ := env.authenticate(t, "student@example.com")

	body := CreateAccountRequest{
		FirstName:       "New",
		LastName:        "Instructor",
		Email:           "instructor@example.com",
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
		Role:            "Instructor",
	}

	rec := env.do(t, http.MethodPost, "/accounts/", body, withBearer(studentResp.JwtToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/accounts/", body, withBearer(adminResp.JwtToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var created AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Instructor", created.Role)
	assert.True(t, created.IsVerified)

	// Created accounts log in straight away, no verification mail was sent
	_, sent := env.notifier.LastTo("instructor@example.com")
	assert.False(t, sent)
	env.authenticate(t, "instructor@example.com")

	// Duplicate email conflicts instead of staying silent like register
	rec = env.do(t, http.MethodPost, "/accounts/", body, withBearer(adminResp.JwtToken))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAccountSelfAccess(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")
	env.registerVerified(t, "student@example.com")

	studentResp, _ := env.authenticate(t, "student@example.com")
	self := fmt.Sprintf("/accounts/%d", studentResp.ID)

	rec := env.do(t, http.MethodGet, self, nil, withBearer(studentResp.JwtToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another account's record is off limits
	rec = env.do(t, http.MethodGet, "/accounts/1", nil, withBearer(studentResp.JwtToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Self update works, but the role change is dropped for non-admins
	role := "Admin"
	first := "Janet"
	rec = env.do(t, http.MethodPut, self, UpdateAccountRequest{FirstName: &first, Role: &role},
		withBearer(studentResp.JwtToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "Student", updated.Role)
}

func TestInstitutionGrantGatesStudentList(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")
	env.registerVerified(t, "instructor@example.com")

	adminResp, _ := env.authenticate(t, "admin@example.com")
	instructorResp, _ := env.authenticate(t, "instructor@example.com")

	// Without a grant the instructor is denied
	rec := env.do(t, http.MethodGet, "/institutions/5/students", nil, withBearer(instructorResp.JwtToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An admin grants institution 5 to the instructor
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/accounts/%d/institutions", instructorResp.ID),
		UpdateInstitutionsRequest{InstitutionIDs: []int64{5}}, withBearer(adminResp.JwtToken))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/institutions/5/students", nil, withBearer(instructorResp.JwtToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Non-admins cannot grant themselves institutions
	rec = env.do(t, http.MethodPut, fmt.Sprintf("/accounts/%d/institutions", instructorResp.ID),
		UpdateInstitutionsRequest{InstitutionIDs: []int64{5, 6}}, withBearer(instructorResp.JwtToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRevokeTokenEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "admin@example.com")

	resp, cookie := env.authenticate(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/accounts/revoke-token",
		RevokeTokenRequest{Token: cookie.Value}, withBearer(resp.JwtToken))
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked token no longer refreshes
	rec = env.do(t, http.MethodPost, "/accounts/refresh-token", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	env := newAPIEnv(t)
	env.registerVerified(t, "jane@example.com")

	rec := env.do(t, http.MethodPost, "/accounts/forgot-password", ForgotPasswordRequest{Email: "jane@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	notice, ok := env.notifier.LastTo("jane@example.com")
	require.True(t, ok)
	require.Equal(t, notification.NoticePasswordReset, notice.Type)
	token := notice.Data.Data["Token"]

	rec = env.do(t, http.MethodPost, "/accounts/validate-reset-token", ValidateResetTokenRequest{Token: token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/accounts/reset-password", ResetPasswordRequest{
		Token:           token,
		Password:        "BrandNew456",
		ConfirmPassword: "BrandNew456",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown emails get the same uniform 200
	rec = env.do(t, http.MethodPost, "/accounts/forgot-password", ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
