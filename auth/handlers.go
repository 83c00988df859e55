package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"quill/middleware"
	"quill/models"
	"quill/rdx"
	"quill/store"
	"quill/utils"
)

const sessionHash = "sessions"

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var input struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	input.Email = normalizeEmail(input.Email)

	switch {
	case input.Name == "":
		utils.RespondWithError(w, http.StatusBadRequest, "Please provide a name")
		return
	case !validUsername(input.Username):
		utils.RespondWithError(w, http.StatusBadRequest, "Username must be 3-30 characters of letters, numbers, and underscores")
		return
	case !validEmail(input.Email):
		utils.RespondWithError(w, http.StatusBadRequest, "Please provide a valid email")
		return
	case len(input.Password) < 6:
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password for user %s: %v", input.Username, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	now := time.Now()
	user := models.User{
		UserID:     "u" + utils.GenerateRandomString(10),
		Name:       input.Name,
		Username:   input.Username,
		Email:      input.Email,
		Password:   string(hashed),
		Role:       models.RoleUser,
		Followers:  []string{},
		Following:  []string{},
		Bookmarks:  []string{},
		LikedPosts: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.CreateUser(ctx, &user); err != nil {
		switch err {
		case store.ErrUsernameTaken:
			utils.RespondWithError(w, http.StatusBadRequest, "Username already taken")
		case store.ErrEmailTaken:
			utils.RespondWithError(w, http.StatusBadRequest, "Email already registered")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	token, err := middleware.NewToken(user.UserID, user.Username, user.Role)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	utils.RespondWithData(w, http.StatusCreated, utils.M{"token": token, "user": user})
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.Users.GetUserByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := middleware.NewToken(user.UserID, user.Username, user.Role)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := rdx.RdxHset(ctx, sessionHash, user.UserID, token); err != nil {
		log.Printf("Redis session storage failed: %v", err)
	}

	utils.RespondWithData(w, http.StatusOK, utils.M{"token": token, "user": user})
}

// Logout handles POST /auth/logout. Session revocation in redis is
// best-effort: a failure is logged and the logout still succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	go func() {
		if err := rdx.RdxHdel(context.Background(), sessionHash, userID); err != nil {
			log.Printf("Error removing session from Redis: %v", err)
		}
	}()
	utils.RespondWithData(w, http.StatusOK, utils.M{"message": "Logged out successfully"})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetUserByID(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	utils.RespondWithData(w, http.StatusOK, user)
}

// UpdateDetails handles PUT /auth/updatedetails
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	var input struct {
		Name        *string             `json:"name"`
		Bio         *string             `json:"bio"`
		Location    *string             `json:"location"`
		Website     *string             `json:"website"`
		Avatar      *string             `json:"avatar"`
		SocialLinks *models.SocialLinks `json:"social_links"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	set := map[string]any{"updated_at": time.Now()}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		set["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Bio != nil {
		set["bio"] = *input.Bio
	}
	if input.Location != nil {
		set["location"] = *input.Location
	}
	if input.Website != nil {
		set["website"] = *input.Website
	}
	if input.Avatar != nil {
		set["avatar"] = *input.Avatar
	}
	if input.SocialLinks != nil {
		set["social_links"] = *input.SocialLinks
	}

	if err := h.Users.UpdateUser(ctx, userID, set); err != nil {
		if err == store.ErrNotFound {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	utils.RespondWithData(w, http.StatusOK, user)
}

// UpdatePassword handles PUT /auth/updatepassword
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if len(input.NewPassword) < 6 {
		utils.RespondWithError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}
	if err := h.Users.UpdateUser(ctx, userID, map[string]any{
		"password":   string(hashed),
		"updated_at": time.Now(),
	}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	token, err := middleware.NewToken(user.UserID, user.Username, user.Role)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{"token": token, "message": "Password updated"})
}
