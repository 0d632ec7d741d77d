package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/lbxchange/backend/internal/audit"
	"github.com/lbxchange/backend/internal/models"
)

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	gate      *StepUpGate
	audit     *audit.Logger
	validator *ValidationHelper
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
	IsAdmin  bool   `json:"isAdmin"`
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"password123"`
	OTP      string `json:"otp,omitempty" example:"123456"` // step-up code, when prompted
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, gate *StepUpGate, auditLog *audit.Logger) *AuthService {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("jwt.expiry_hours", 24)

	return &AuthService{
		db:        db,
		redis:     redisClient,
		gate:      gate,
		audit:     auditLog,
		validator: NewValidationHelper(),
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "An internal error occurred", http.StatusInternalServerError, nil)
		return
	}

	role := "USER"
	if req.IsAdmin {
		role = "ADMIN"
	}

	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	var user models.User
	err = tx.QueryRow(`
		INSERT INTO users (email, password, role)
		VALUES ($1, $2, $3)
		RETURNING id, email, role, status, mfa_enabled, usd_balance, lbp_balance, created_at`,
		strings.ToLower(req.Email), hashedPassword, role).
		Scan(&user.ID, &user.Email, &user.Role, &user.Status, &user.MFAEnabled,
			&user.USDBalance, &user.LBPBalance, &user.CreatedAt)
	if err != nil {
		log.Printf("[AUTH] User creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Email already registered", http.StatusConflict, nil)
		return
	}

	if _, err = tx.Exec(`INSERT INTO user_preferences (user_id) VALUES ($1)`, user.ID); err != nil {
		log.Printf("[AUTH] Preference creation failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	if err = tx.Commit(); err != nil {
		log.Printf("[AUTH] Transaction commit failed for %s: %v", req.Email, err)
		SendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate with email and password; users with step-up
// @Description authentication enabled receive a one-time code on first attempt
// @Description and must resubmit with it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 401 {object} ErrorResponse "Invalid credentials or code"
// @Failure 403 {object} ErrorResponse "Verification code required"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user models.User
	var hashedPassword string
	err := s.db.QueryRow(`
		SELECT id, email, role, status, mfa_enabled, usd_balance, lbp_balance, created_at, password
		FROM users WHERE email = $1`, strings.ToLower(req.Email)).
		Scan(&user.ID, &user.Email, &user.Role, &user.Status, &user.MFAEnabled,
			&user.USDBalance, &user.LBPBalance, &user.CreatedAt, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] User not found for email: %s", req.Email)
		s.audit.Record(nil, "LOGIN_FAILED", fmt.Sprintf("Failed attempt for email: %s", req.Email))
		SendErrorResponse(w, "Invalid email or password", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user %d", user.ID)
		s.audit.RecordFor(user.ID, "LOGIN_FAILED", fmt.Sprintf("Failed attempt for email: %s", req.Email))
		SendErrorResponse(w, "Invalid email or password", http.StatusUnauthorized, nil)
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		SendErrorResponse(w, "Login failed", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	challenge, err := s.gate.Authorize(tx, user.ID, req.OTP)
	if err != nil {
		if errors.Is(err, ErrChallengeIssued) {
			if err := s.gate.FinishChallenge(tx, challenge); err != nil {
				SendErrorResponse(w, "Login failed", http.StatusInternalServerError, nil)
				return
			}
		}
		SendServiceError(w, err)
		return
	}

	if err = tx.Commit(); err != nil {
		SendErrorResponse(w, "Login failed", http.StatusInternalServerError, nil)
		return
	}

	token, err := generateJWT(user.ID)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	s.audit.RecordFor(user.ID, "LOGIN_SUCCESS", "User logged in successfully")
	log.Printf("[AUTH] Login successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Logout handles user logout
// @Summary Logout user
// @Description Logout user and blacklist token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// GetMe returns the authenticated user's profile and balances
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Router /users/me [get]
func (s *AuthService) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var user models.User
	err := s.db.QueryRow(`
		SELECT id, email, role, status, mfa_enabled, usd_balance, lbp_balance, created_at
		FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Email, &user.Role, &user.Status, &user.MFAEnabled,
			&user.USDBalance, &user.LBPBalance, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "User not found", http.StatusNotFound, nil)
		} else {
			log.Printf("[AUTH] Failed to fetch user %d: %v", userID, err)
			SendErrorResponse(w, "Failed to fetch user", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// MyActivity returns the caller's recent audit trail
// @Summary Get own activity log
// @Tags auth
// @Produce json
// @Success 200 {array} models.AuditLog
// @Router /users/me/activity [get]
func (s *AuthService) MyActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.Query(`
		SELECT id, user_id, action, details, created_at
		FROM audit_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		log.Printf("[AUTH] Failed to fetch activity for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch activity", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	entries := []models.AuditLog{}
	for rows.Next() {
		var entry models.AuditLog
		var entryUserID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entryUserID, &entry.Action, &entry.Details, &entry.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch activity", http.StatusInternalServerError, nil)
			return
		}
		if entryUserID.Valid {
			entry.UserID = &entryUserID.Int64
		}
		entries = append(entries, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func generateJWT(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}

// decodeJSON applies the shared body-decoding discipline: size cap, unknown
// field rejection, single-object enforcement.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
