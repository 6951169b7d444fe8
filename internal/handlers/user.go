package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// UserHandler serves profile, preference and user administration endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile returns the caller's own account
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": dto.ToUserDTO(*user)})
}

// UpdateProfile changes the caller's name and profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	input := services.UpdateProfileInput{Name: req.Name}
	if req.Profile != nil {
		input.Bio = req.Profile.Bio
		input.Phone = req.Profile.Phone
		input.Location = req.Profile.Location
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": dto.ToUserDTO(*user)})
}

// UpdatePreferences changes the caller's preferences
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	input := services.UpdatePreferencesInput{
		Language: req.Language,
		Timezone: req.Timezone,
	}
	if req.Theme != nil {
		theme := models.Theme(*req.Theme)
		input.Theme = &theme
	}
	if req.Notifications != nil {
		input.EmailNotifications = req.Notifications.Email
		input.PushNotifications = req.Notifications.Push
		input.SMSNotifications = req.Notifications.SMS
	}

	user, err := h.userService.UpdatePreferences(c.Request.Context(), userID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": dto.ToUserDTO(*user)})
}

// ListUsers returns active users, optionally filtered by ?search=
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), services.ListUsersInput{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, utils.NewPaginationResponse(params, total)))
}

// GetUser returns the public view of a user. Email is shown to authenticated callers only.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetPublicUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	_, authenticated := middleware.GetUserID(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": dto.ToPublicUserDTO(*user, authenticated)})
}

// SetStatus activates or deactivates a user
func (h *UserHandler) SetStatus(c *gin.Context) {
	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Respond(c, apierrors.ErrUnauthorized)
		return
	}

	var req dto.UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Respond(c, err)
		return
	}

	user, err := h.userService.SetActive(c.Request.Context(), actorID, c.Param("id"), *req.IsActive)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": dto.ToPublicUserDTO(*user, true)})
}
