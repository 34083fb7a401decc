package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/app/system/authz"
	"github.com/dalemusser/trackhub/internal/app/system/normalize"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
)

// Session is a freshly issued credential and the user it belongs to.
type Session struct {
	Credential auth.Credential `json:"token"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	User       models.User     `json:"user"`
}

func (c *Coordinator) issue(u models.User) (Session, error) {
	cred, exp, err := c.auth.Issue(auth.Identity{UserID: u.ID, Role: u.Role})
	if err != nil {
		return Session{}, err
	}
	return Session{Credential: cred, ExpiresAt: exp, User: u}, nil
}

// Register creates an active user account with role user and signs it in.
func (c *Coordinator) Register(ctx context.Context, in RegisterInput) (s Session, err error) {
	defer c.observe("register", time.Now(), &err)

	in.Name = normalize.Name(in.Name)
	in.Email = normalize.Email(in.Email)
	if err := validate(in); err != nil {
		return Session{}, err
	}
	hash, err := c.auth.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	sctx, cancel := c.writeCtx(ctx, "register")
	defer cancel()
	u, err := c.users.Create(sctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         models.RoleUser,
		IsActive:     true,
		PasswordHash: hash,
	})
	if err != nil {
		return Session{}, storeErr(err, "user")
	}
	c.audit.Registered(ctx, u.ID, u.Email)
	return c.issue(u)
}

// Login exchanges email and password for a credential.
func (c *Coordinator) Login(ctx context.Context, in LoginInput) (s Session, err error) {
	defer c.observe("login", time.Now(), &err)

	if err := validate(in); err != nil {
		return Session{}, err
	}
	u, err := c.auth.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if apperr.Is(err, apperr.Unauthenticated) {
			c.audit.LoginFailed(ctx, normalize.Email(in.Email), "invalid credentials")
		}
		return Session{}, err
	}
	c.audit.LoginSuccess(ctx, u.ID, u.Email)
	return c.issue(u)
}

// VerifyCredential returns the user behind cred.
func (c *Coordinator) VerifyCredential(ctx context.Context, cred auth.Credential) (u models.User, err error) {
	defer c.observe("verify", time.Now(), &err)
	return c.authenticate(ctx, cred)
}

// RefreshCredential issues a new credential for a still-valid one.
func (c *Coordinator) RefreshCredential(ctx context.Context, cred auth.Credential) (s Session, err error) {
	defer c.observe("refresh", time.Now(), &err)

	u, err := c.authenticate(ctx, cred)
	if err != nil {
		return Session{}, err
	}
	return c.issue(u)
}

// UpdateProfile changes the caller's own name, email or avatar.
func (c *Coordinator) UpdateProfile(ctx context.Context, cred auth.Credential, in ProfileInput) (u models.User, err error) {
	defer c.observe("update_profile", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return models.User{}, err
	}
	if err := c.authorize(ctx, caller, authz.Target{Resource: authz.ResourceUser, UserID: caller.ID}, authz.UpdateProfile); err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		n := normalize.Name(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := normalize.Email(*in.Email)
		in.Email = &e
	}
	if in.Avatar != nil {
		a := strings.TrimSpace(*in.Avatar)
		in.Avatar = &a
	}
	if err := validate(in); err != nil {
		return models.User{}, err
	}

	sctx, cancel := c.writeCtx(ctx, "update profile")
	defer cancel()
	u, err = c.users.Update(sctx, caller.ID, repo.UserUpdate{Name: in.Name, Email: in.Email, Avatar: in.Avatar})
	if err != nil {
		return models.User{}, storeErr(err, "user")
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the
// current one.
func (c *Coordinator) ChangePassword(ctx context.Context, cred auth.Credential, in ChangePasswordInput) (err error) {
	defer c.observe("change_password", time.Now(), &err)

	caller, err := c.authenticate(ctx, cred)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, caller, authz.Target{Resource: authz.ResourceUser, UserID: caller.ID}, authz.UpdateProfile); err != nil {
		return err
	}
	if err := validate(in); err != nil {
		return err
	}
	if !auth.CheckPassword(caller.PasswordHash, in.CurrentPassword) {
		c.audit.PasswordChangeFailed(ctx, caller.ID)
		return apperr.Invalidf("Current password is incorrect.")
	}
	hash, err := c.auth.Hash(in.NewPassword)
	if err != nil {
		return err
	}

	sctx, cancel := c.writeCtx(ctx, "change password")
	defer cancel()
	if err := c.users.SetPasswordHash(sctx, caller.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrInvalidCredential
		}
		return storeErr(err, "user")
	}
	c.audit.PasswordChanged(ctx, caller.ID)
	c.log.Info("password changed", zap.String("user_id", caller.ID.Hex()))
	return nil
}
