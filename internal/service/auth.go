package service

import (
	"context"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"
	"retailer-service/pkg/jwtutil"
	"retailer-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const invalidCredentials = "Invalid credentials"

// LoginRequest is the body of a login call
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Caller is the redacted view of an authenticated account
type Caller struct {
	ID       uint       `json:"id"`
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

// LoginResponse carries the bearer token and the caller it was issued for
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        Caller `json:"user"`
}

// CreateSalesRepRequest is the admin body for creating an account
type CreateSalesRepRequest struct {
	Username string     `json:"username" validate:"required,min=3,max=100"`
	Name     string     `json:"name" validate:"required,max=255"`
	Phone    string     `json:"phone" validate:"max=50"`
	Password string     `json:"password" validate:"required,min=6,max=72"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=ADMIN SALES_REP"`
}

// AuthService issues tokens and resolves them back to the current account row
type AuthService struct {
	db       *gorm.DB
	jwt      *jwtutil.JWTUtil
	metrics  *prometheus.Metrics
	log      *zap.Logger
	hashCost int
}

func NewAuthService(db *gorm.DB, jwt *jwtutil.JWTUtil, metrics *prometheus.Metrics, log *zap.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, metrics: metrics, log: log, hashCost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash stored for an account
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func toCaller(sr *model.SalesRep) Caller {
	return Caller{ID: sr.ID, Username: sr.Username, Name: sr.Name, Role: sr.Role}
}

// Login verifies username and password and issues a token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	s.metrics.AuthAttemptsCounter.Inc()
	defer s.metrics.TrackDBOperation("query")(time.Now())

	var user model.SalesRep
	if err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if apperror.KindOf(fromDB(err, "User")) != apperror.KindNotFound {
			return nil, fromDB(err, "User")
		}
		s.log.Warn("Login for unknown user", zap.String("username", req.Username))
		s.metrics.RecordAuthError("user_not_found")
		return nil, apperror.Authentication(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Warn("Invalid password", zap.String("username", req.Username))
		s.metrics.RecordAuthError("invalid_password")
		return nil, apperror.Authentication(invalidCredentials)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		s.metrics.RecordAuthError("token_generation_failed")
		return nil, apperror.Internal(err, "generate token")
	}

	s.metrics.AuthSuccessCounter.Inc()
	s.log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return &LoginResponse{AccessToken: token, User: toCaller(&user)}, nil
}

// ResolveCaller verifies token and reloads the account it names, so role and name
// changes apply without waiting for the token to expire.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (*Caller, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		s.metrics.RecordAuthError("invalid_token")
		return nil, apperror.Wrap(apperror.KindAuthentication, err, "Invalid or expired token")
	}
	id, err := claims.SubjectID()
	if err != nil {
		s.metrics.RecordAuthError("invalid_subject")
		return nil, apperror.Wrap(apperror.KindAuthentication, err, "Invalid or expired token")
	}

	var user model.SalesRep
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if apperror.KindOf(fromDB(err, "User")) != apperror.KindNotFound {
			return nil, fromDB(err, "User")
		}
		s.metrics.RecordAuthError("user_not_found")
		return nil, apperror.Authentication("User no longer exists")
	}

	caller := toCaller(&user)
	return &caller, nil
}

// CreateSalesRep stores a new account with a hashed password. Role defaults to SALES_REP.
func (s *AuthService) CreateSalesRep(ctx context.Context, req CreateSalesRepRequest) (*model.SalesRep, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.SalesRep{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fromDB(err, "Sales rep")
	}
	if count > 0 {
		return nil, apperror.Conflict("Username already exists", nil)
	}

	role := req.Role
	if role == "" {
		role = model.RoleSalesRep
	}
	if !role.Valid() {
		return nil, apperror.Validation("Unknown role %s", role)
	}

	hash, err := HashPassword(req.Password, s.hashCost)
	if err != nil {
		return nil, apperror.Internal(err, "hash password")
	}

	sr := model.SalesRep{
		Username:     req.Username,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(&sr).Error; err != nil {
		return nil, fromDB(err, "Sales rep")
	}

	s.log.Info("Sales rep created",
		zap.Uint("id", sr.ID),
		zap.String("username", sr.Username),
		zap.String("role", string(sr.Role)))
	return &sr, nil
}

// ListSalesReps returns every account ordered by username
func (s *AuthService) ListSalesReps(ctx context.Context) ([]model.SalesRep, error) {
	reps := []model.SalesRep{}
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&reps).Error; err != nil {
		return nil, fromDB(err, "Sales rep")
	}
	return reps, nil
}
