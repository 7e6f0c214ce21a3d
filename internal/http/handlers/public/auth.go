package public

import (
	"time"

	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username       string   `json:"username" binding:"required,min=3,max=64"`
	Email          string   `json:"email" binding:"required,email"`
	Password       string   `json:"password" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Role           string   `json:"role" binding:"required,oneof=Shipper Carrier"`
	CompanyName    string   `json:"company_name" binding:"required"`
	Certifications []string `json:"certifications"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

func toAuthResponse(result *service.AuthResult) AuthResponse {
	resp := AuthResponse{User: result.User, Token: result.Token}
	if result.Token != "" {
		expiresAt := result.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// Register 注册货主或承运商
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.AuthService.Register(c.Request.Context(), service.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		Role:           req.Role,
		CompanyName:    req.CompanyName,
		Certifications: req.Certifications,
	})
	if err != nil {
		respondServiceError(c, err, "Registration failed")
		return
	}
	response.Created(c, toAuthResponse(result))
}

// Login 用户名密码登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err, "Login failed")
		return
	}
	response.Success(c, toAuthResponse(result))
}

// Me 当前登录用户
func (h *Handler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetUserByID(actor.UserID)
	if err != nil {
		respondServiceError(c, err, "Failed to load user")
		return
	}
	response.Success(c, user)
}
