package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 注册、登录与令牌服务
type AuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	emitter  EventEmitter
}

// NewAuthService 创建认证服务
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, emitter EventEmitter) *AuthService {
	return &AuthService{
		cfg:      cfg,
		userRepo: userRepo,
		emitter:  emitterOrNoop(emitter),
	}
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// RegisterInput 注册参数
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	Name           string
	Role           string
	CompanyName    string
	Certifications []string
}

// AuthResult 认证结果；待审核账号不签发令牌
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateJWT 生成 JWT
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT，仅接受 HS256
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &JWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Register 注册货主或承运商，承运商需管理员审核
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, err := s.buildRegisteredUser(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(user.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}
	existing, err = s.userRepo.GetByEmail(user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventUserRegistered,
		RelatedEntityID: user.ID,
		Actor:           Actor{UserID: user.ID, Role: user.Role},
		Details: map[string]interface{}{
			"username": user.Username,
			"role":     user.Role,
			"status":   user.Status,
		},
	})

	result := &AuthResult{User: user}
	if user.Status != constants.UserStatusActive {
		return result, nil
	}
	result.Token, result.ExpiresAt, err = s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	_ = cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user))
	return result, nil
}

func (s *AuthService) buildRegisteredUser(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if len([]rune(username)) < 3 {
		return nil, ErrInvalidUsername
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	companyName := strings.TrimSpace(input.CompanyName)
	if name == "" || companyName == "" {
		return nil, ErrRequiredField
	}

	status := constants.UserStatusActive
	switch input.Role {
	case constants.RoleShipper:
	case constants.RoleCarrier:
		status = constants.UserStatusPendingApproval
	default:
		return nil, ErrInvalidRole
	}

	certifications := models.StringArray{}
	for _, item := range input.Certifications {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			certifications = append(certifications, trimmed)
		}
	}
	return &models.User{
		Username:       username,
		Email:          email,
		Name:           name,
		Role:           input.Role,
		CompanyName:    companyName,
		Status:         status,
		Preferences:    models.DefaultPreferences(),
		Certifications: certifications,
	}, nil
}

// Login 用户名密码登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := checkUserStatus(user.Status); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.TouchLastLogin(user.ID, now); err != nil {
		logger.Warnw("auth_touch_last_login_failed", "user_id", user.ID, "error", err)
	}
	_ = cache.SetUserAuthState(ctx, cache.BuildUserAuthState(user))
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// GetUserByID 获取用户
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ResolveAuthState 校验令牌对应账号当前是否可用，优先读缓存
func (s *AuthService) ResolveAuthState(ctx context.Context, claims *JWTClaims) (*cache.UserAuthState, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}
	state, hit, err := cache.GetUserAuthState(ctx, claims.UserID)
	if err != nil {
		logger.Warnw("auth_state_cache_read_failed", "user_id", claims.UserID, "error", err)
	}
	if !hit || state == nil {
		user, err := s.userRepo.GetByID(claims.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrInvalidToken
		}
		state = cache.BuildUserAuthState(user)
		_ = cache.SetUserAuthState(ctx, state)
	}
	if state.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	if err := checkUserStatus(state.Status); err != nil {
		return nil, err
	}
	return state, nil
}

func checkUserStatus(status string) error {
	switch status {
	case constants.UserStatusActive:
		return nil
	case constants.UserStatusPendingApproval:
		return ErrAccountPendingApproval
	default:
		return ErrAccountInactive
	}
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// IsTokenError 判断是否为令牌解析类错误
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid)
}
