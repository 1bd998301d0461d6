package api

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/authz"
	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/login"
	"github.com/certportal/authcore/pkg/tokengen"
)

// Handle serves the HTTP surface of the auth core
type Handle struct {
	loginService *login.LoginService
	accounts     *account.Service
	engine       *authz.Engine
	grants       authz.Repository
	jwtAuth      *jwtauth.JWTAuth
	cookieSetter tokengen.CookieSetter
}

// NewHandle creates a new Handle
func NewHandle(
	loginService *login.LoginService,
	accounts *account.Service,
	engine *authz.Engine,
	grants authz.Repository,
	jwtAuth *jwtauth.JWTAuth,
	cookieSetter tokengen.CookieSetter,
) *Handle {
	return &Handle{
		loginService: loginService,
		accounts:     accounts,
		engine:       engine,
		grants:       grants,
		jwtAuth:      jwtAuth,
		cookieSetter: cookieSetter,
	}
}

// Routes registers all endpoints on the router
func (h *Handle) Routes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/authenticate", h.Authenticate)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/register", h.Register)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/validate-reset-token", h.ValidateResetToken)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.jwtAuth))
			r.Use(Authenticator)

			r.Post("/revoke-token", h.RevokeToken)
			r.Get("/", h.GetAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/institutions", h.GetInstitutions)
			r.Put("/{id}/institutions", h.UpdateInstitutions)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.jwtAuth))
		r.Use(Authenticator)

		r.Get("/institutions/{id}/students", h.GetStudents)
	})
}

// Authenticate handles POST /accounts/authenticate
func (h *Handle) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, r, errors.InvalidInput("credentials", "email and password are required"))
		return
	}

	result, err := h.loginService.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result)
	render.JSON(w, r, toAuthenticateResponse(result))
}

// RefreshToken handles POST /accounts/refresh-token
func (h *Handle) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(tokengen.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		respondError(w, r, errors.New(errors.ErrCodeTokenNotFound, "missing refresh token cookie"))
		return
	}

	result, err := h.loginService.Refresh(r.Context(), cookie.Value, clientIP(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.setRefreshCookie(w, result)
	render.JSON(w, r, toAuthenticateResponse(result))
}

// RevokeToken handles POST /accounts/revoke-token. The token comes from the
// body or, failing that, the refresh cookie.
func (h *Handle) RevokeToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.Unauthorized("unauthorized"))
		return
	}

	var req RevokeTokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && r.ContentLength > 0 {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}
	token := req.Token
	if token == "" {
		if cookie, err := r.Cookie(tokengen.RefreshCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		respondError(w, r, errors.InvalidInput("token", "token is required"))
		return
	}

	if err := h.loginService.RevokeToken(r.Context(), principal.AccountID, principal.Role, token, clientIP(r)); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Token revoked"})
}

// Register handles POST /accounts/register
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}
	if req.Password != req.ConfirmPassword {
		respondError(w, r, errors.New(errors.ErrCodeValidationFailed, "passwords do not match"))
		return
	}

	var params login.RegisterParams
	if err := copier.Copy(&params, &req); err != nil {
		respondError(w, r, errors.Wrap(err, errors.ErrCodeInternal, "failed to map request"))
		return
	}

	if err := h.loginService.Register(r.Context(), params); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{
		Message: "Registration successful, please check your email for verification instructions",
	})
}

// VerifyEmail handles POST /accounts/verify-email
func (h *Handle) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" {
		respondError(w, r, errors.InvalidInput("token", "token is required"))
		return
	}

	if err := h.loginService.VerifyEmail(r.Context(), req.Token); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Verification successful, you can now login"})
}

// ForgotPassword handles POST /accounts/forgot-password
func (h *Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Email == "" {
		respondError(w, r, errors.InvalidInput("email", "email is required"))
		return
	}

	if err := h.loginService.ForgotPassword(r.Context(), req.Email); err != nil {
		slog.Error("Failed forgot password flow", "err", err)
	}
	// Uniform response regardless of whether the email is registered
	render.JSON(w, r, MessageResponse{Message: "Please check your email for password reset instructions"})
}

// ValidateResetToken handles POST /accounts/validate-reset-token
func (h *Handle) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateResetTokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Token == "" {
		respondError(w, r, errors.InvalidInput("token", "token is required"))
		return
	}

	if err := h.loginService.ValidateResetToken(r.Context(), req.Token); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Token is valid"})
}

// ResetPassword handles POST /accounts/reset-password
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}
	if req.Password != req.ConfirmPassword {
		respondError(w, r, errors.New(errors.ErrCodeValidationFailed, "passwords do not match"))
		return
	}

	if err := h.loginService.ResetPassword(r.Context(), req.Token, req.Password, clientIP(r)); err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Password reset successful, you can now login"})
}

// GetAccounts handles GET /accounts
func (h *Handle) GetAccounts(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.Unauthorized("unauthorized"))
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionRead, nil, nil); err != nil {
		respondError(w, r, err)
		return
	}

	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponses(accounts))
}

// CreateAccount handles POST /accounts. Unlike register, the created
// account comes out verified and may carry any role.
func (h *Handle) CreateAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, errors.Unauthorized("unauthorized"))
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionWrite, nil, nil); err != nil {
		respondError(w, r, err)
		return
	}

	var req CreateAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}
	if req.Password != req.ConfirmPassword {
		respondError(w, r, errors.New(errors.ErrCodeValidationFailed, "passwords do not match"))
		return
	}

	var params account.CreateParams
	if err := copier.Copy(&params, &req); err != nil {
		respondError(w, r, errors.Wrap(err, errors.ErrCodeInternal, "failed to map request"))
		return
	}
	params.Role = account.Role(req.Role)

	created, err := h.accounts.Create(r.Context(), params)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponse(created))
}

// GetAccount handles GET /accounts/{id}
func (h *Handle) GetAccount(w http.ResponseWriter, r *http.Request) {
	principal, id, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionRead, nil, &id); err != nil {
		respondError(w, r, err)
		return
	}

	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponse(acct))
}

// UpdateAccount handles PUT /accounts/{id}
func (h *Handle) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	principal, id, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionWrite, nil, &id); err != nil {
		respondError(w, r, err)
		return
	}

	var req UpdateAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}

	var params account.UpdateParams
	if err := copier.Copy(&params, &req); err != nil {
		respondError(w, r, errors.Wrap(err, errors.ErrCodeInternal, "failed to map request"))
		return
	}
	if req.Role != nil {
		role := account.Role(*req.Role)
		params.Role = &role
	}

	allowRoleChange := principal.Role == account.RoleAdmin
	updated, err := h.accounts.Update(r.Context(), id, params, allowRoleChange)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponse(updated))
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *Handle) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, id, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionDelete, nil, &id); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.grants.DeleteForAccount(r.Context(), id); err != nil {
		slog.Error("Failed deleting institution grants", "accountId", id, "err", err)
	}
	render.JSON(w, r, MessageResponse{Message: "Account deleted successfully"})
}

// GetStudents handles GET /institutions/{id}/students
func (h *Handle) GetStudents(w http.ResponseWriter, r *http.Request) {
	principal, institutionID, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionRead, &institutionID, nil); err != nil {
		respondError(w, r, err)
		return
	}

	students, err := h.accounts.StudentsByInstitution(r.Context(), institutionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, toAccountResponses(students))
}

// GetInstitutions handles GET /accounts/{id}/institutions
func (h *Handle) GetInstitutions(w http.ResponseWriter, r *http.Request) {
	principal, id, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionRead, nil, &id); err != nil {
		respondError(w, r, err)
		return
	}

	grants, err := h.grants.FindByAccount(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, grants)
}

// UpdateInstitutions handles PUT /accounts/{id}/institutions. Granting
// institution scope is never a self-service operation, so only Admins pass.
func (h *Handle) UpdateInstitutions(w http.ResponseWriter, r *http.Request) {
	principal, id, err := h.principalAndID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.engine.Authorize(r.Context(), principal, authz.ActionWrite, nil, nil); err != nil {
		respondError(w, r, err)
		return
	}

	var req UpdateInstitutionsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, errors.InvalidInput("body", "unable to parse request body"))
		return
	}

	if _, err := h.accounts.Get(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.grants.ReplaceForAccount(r.Context(), id, req.InstitutionIDs); err != nil {
		respondError(w, r, errors.Wrap(err, errors.ErrCodeInternal, "failed to update institution grants"))
		return
	}

	grants, err := h.grants.FindByAccount(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, grants)
}

func (h *Handle) setRefreshCookie(w http.ResponseWriter, result login.AuthResult) {
	err := h.cookieSetter.SetCookie(w, tokengen.RefreshCookieName,
		result.RefreshToken.Token, result.RefreshToken.ExpiresAt)
	if err != nil {
		slog.Error("Failed to set refresh token cookie", "err", err)
	}
}

func (h *Handle) principalAndID(r *http.Request) (authz.Principal, int64, error) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		return authz.Principal{}, 0, errors.Unauthorized("unauthorized")
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return authz.Principal{}, 0, errors.InvalidInput("id", "must be an integer")
	}
	return principal, id, nil
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	// Reuse detection is an internal signal. Callers must see the same
	// generic failure as any other rejected refresh token; the cascade and
	// its logging already happened in the service.
	if code == errors.ErrCodeTokenReuseDetected {
		err = errors.New(errors.ErrCodeInvalidCredentials, "invalid refresh token")
		code = errors.ErrCodeInvalidCredentials
	}
	status := errors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
	}

	message := "internal server error"
	var e *errors.Error
	if stderrors.As(err, &e) && status < http.StatusInternalServerError {
		message = e.Message
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{
		"code":    string(code),
		"message": message,
	})
}
