package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/badoux/checkmail"
	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/core"
	"financeflow/internal/log"
)

const minPasswordLen = 6

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  core.User `json:"user"`
	Token string    `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := checkmail.ValidateFormat(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to hash password", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := s.store.CreateUser(req.Email, hash)
	if errors.Is(err, ErrEmailTaken) {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to create user", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.respondWithToken(w, r, http.StatusCreated, user)
	logger.InfoContext(r.Context(), "User registered", log.FieldUserID, user.UID, log.FieldOperation, log.OpRegister)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	rec, err := s.store.userByEmail(req.Email)
	if err == nil {
		err = bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(req.Password))
	}
	if err != nil {
		logger.InfoContext(r.Context(), "Login rejected", log.FieldOperation, log.OpLogin, log.FieldSuccess, false)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.respondWithToken(w, r, http.StatusOK, rec.user)
	logger.InfoContext(r.Context(), "User signed in", log.FieldUserID, rec.user.UID, log.FieldOperation, log.OpLogin)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user core.User) {
	token, err := s.tokens.Issue(user.UID, user.Email)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to issue token", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, status, authResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(userIDFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// requireAuth verifies the bearer token and stores the user id in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization token")
			return
		}

		userID, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected token", log.FieldError, err)
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}
