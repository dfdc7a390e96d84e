package service

import (
	"context"
	"encoding/json"
	"testing"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	db := newTestDB(t)
	svc := NewAuthService(db, newTestJWT(), newTestMetrics(), testLog)
	svc.hashCost = bcrypt.MinCost
	return svc, db
}

func TestLogin_AdminTokenCarriesRole(t *testing.T) {
	svc, db := newAuthService(t)
	admin := seedSalesRep(t, db, "admin", "admin123", model.RoleAdmin)

	res, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, Caller{ID: admin.ID, Username: "admin", Name: admin.Name, Role: model.RoleAdmin}, res.User)

	claims, err := svc.jwt.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "admin", claims.Username)
	id, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, admin.ID, id)
}

func TestLogin_Rejected(t *testing.T) {
	svc, db := newAuthService(t)
	seedSalesRep(t, db, "admin", "admin123", model.RoleAdmin)

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Username: "admin", Password: "admin124"}},
		{"unknown user", LoginRequest{Username: "ghost", Password: "admin123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))
			assert.Equal(t, "Invalid credentials", apperror.PublicMessage(err))
		})
	}
}

func TestResolveCaller_ReloadsAccount(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()
	sr := seedSalesRep(t, db, "sr1", "sr123", model.RoleSalesRep)

	res, err := svc.Login(ctx, LoginRequest{Username: "sr1", Password: "sr123"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.SalesRep{}).Where("id = ?", sr.ID).
		Updates(map[string]interface{}{"role": model.RoleAdmin, "name": "Promoted"}).Error)

	caller, err := svc.ResolveCaller(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, caller.Role)
	assert.Equal(t, "Promoted", caller.Name)

	require.NoError(t, db.Delete(&model.SalesRep{}, sr.ID).Error)
	_, err = svc.ResolveCaller(ctx, res.AccessToken)
	assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))
}

func TestResolveCaller_BadToken(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.ResolveCaller(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthentication, apperror.KindOf(err))
	assert.Equal(t, "Invalid or expired token", apperror.PublicMessage(err))
}

func TestCreateSalesRep(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	sr, err := svc.CreateSalesRep(ctx, CreateSalesRepRequest{
		Username: "sr2",
		Name:     "Second Rep",
		Phone:    "01700000002",
		Password: "sr2pass",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSalesRep, sr.Role)
	assert.NotEqual(t, "sr2pass", sr.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(sr.PasswordHash), []byte("sr2pass")))

	raw, err := json.Marshal(sr)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sr2pass")
	assert.NotContains(t, string(raw), sr.PasswordHash)

	_, err = svc.CreateSalesRep(ctx, CreateSalesRepRequest{Username: "sr2", Name: "Dup", Password: "whatever"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = svc.CreateSalesRep(ctx, CreateSalesRepRequest{Username: "boss", Name: "Boss", Password: "whatever", Role: "OWNER"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, "Unknown role OWNER", apperror.PublicMessage(err))

	res, err := svc.Login(ctx, LoginRequest{Username: "sr2", Password: "sr2pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSalesRep, res.User.Role)

	reps, err := svc.ListSalesReps(ctx)
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, "sr2", reps[0].Username)
}
