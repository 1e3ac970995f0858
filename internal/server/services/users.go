// Package services contains server-side business logic. This file implements
// UserService: registration, the nonce + one-time code sign-in, session
// tokens, and account-level encrypted data.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/budgetkeeper/internal/clock"
	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/cryptox"
	"github.com/dmitrijs2005/budgetkeeper/internal/dbx"
	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/auth"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/config"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/models"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/throttle"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// NewUser is a registration request. PublicKey is a DER encoded RSA key
// that invitations to this user are encrypted with.
type NewUser struct {
	Email                string
	AuthString           []byte
	PublicKey            []byte
	EncryptedKeystore    []byte
	EncryptedPreferences []byte
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	access                       *AccessService
	limiter                      *throttle.Limiter
	otpSender                    OTPSender
	clock                        clock.Clock
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	otpValidityDuration          time.Duration
	otpMaxAttempts               int
	throttleWindow               time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, access *AccessService,
	limiter *throttle.Limiter, sender OTPSender, clk clock.Clock, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		access:                       access,
		limiter:                      limiter,
		otpSender:                    sender,
		clock:                        clk,
		logger:                       logger.With("module", "user_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		otpValidityDuration:          cfg.OTPValidityDuration,
		otpMaxAttempts:               cfg.OTPMaxAttempts,
		throttleWindow:               cfg.ThrottleWindow,
	}
}

// Register creates the account with its keystore, preferences and first
// sign-in nonce, and sends the code VerifyCreation expects. The account
// cannot open a session until it is verified.
func (s *UserService) Register(ctx context.Context, nu NewUser) (*models.User, error) {
	if _, err := cryptox.ParseRSAPublicKey(nu.PublicKey); err != nil {
		return nil, common.ErrMalformed
	}

	hash, err := cryptox.HashAuthString(nu.AuthString)
	if err != nil {
		s.logger.Error(ctx, "hash auth string failed", "error", err)
		return nil, common.ErrorInternal
	}

	nonce, err := common.RandomInt32()
	if err != nil {
		return nil, common.ErrorInternal
	}
	code, err := cryptox.GenerateOTP()
	if err != nil {
		s.logger.Error(ctx, "generate otp failed", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user := &models.User{
			ID:             uuid.New(),
			Email:          nu.Email,
			PublicKeyID:    uuid.New(),
			PublicKey:      nu.PublicKey,
			AuthStringHash: hash,
		}
		u, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}

		blobRepo := s.repomanager.Blobs(tx)
		if err := blobRepo.Insert(ctx, blobs.Target{Table: blobs.UserKeystores, ID: u.ID}, nu.EncryptedKeystore); err != nil {
			return err
		}
		if err := blobRepo.Insert(ctx, blobs.Target{Table: blobs.UserPreferences, ID: u.ID}, nu.EncryptedPreferences); err != nil {
			return err
		}
		if err := s.repomanager.SigninNonces(tx).Create(ctx, u.Email, nonce); err != nil {
			return err
		}
		if err := s.repomanager.OTPs(tx).Upsert(ctx, s.oneTimeCode(u.Email, code)); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "register user", err)
	}

	// a failed send is recoverable: signing in mails a fresh code
	if err := s.otpSender.SendOTP(ctx, created.Email, code); err != nil {
		s.logger.Warn(ctx, "send verification code failed", "user_id", created.ID, "error", err)
	}
	return created, nil
}

// VerifyCreation proves ownership of the email address with the code sent by
// Register (or by SignIn on an unverified account). Guesses are capped per
// window like VerifyOTP.
func (s *UserService) VerifyCreation(ctx context.Context, email, code string) error {
	if err := s.limiter.Enforce(ctx, throttle.Key("verify_creation", email), s.otpMaxAttempts, s.throttleWindow); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := s.repomanager.Users(tx)
		user, err := userRepo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if user.IsVerified {
			return common.ErrInvalidState
		}
		if err := s.consumeOTP(ctx, tx, email, code); err != nil {
			return err
		}
		return userRepo.MarkVerified(ctx, user.ID)
	})
	return passDomainError(ctx, s.logger, "verify creation", err)
}

// ObtainNonce returns the current sign-in nonce without rotating it.
func (s *UserService) ObtainNonce(ctx context.Context, email string) (int32, error) {
	nonce, err := s.repomanager.SigninNonces(s.db).Get(ctx, email)
	if err != nil {
		return 0, passDomainError(ctx, s.logger, "obtain nonce", err)
	}
	return nonce, nil
}

// SignIn checks the nonce and the auth string and, when both match, sends a
// one-time code to the user. The nonce is rotated whether or not it matched,
// so every nonce is usable at most once.
func (s *UserService) SignIn(ctx context.Context, email string, authString []byte, nonce int32) error {
	current, err := s.rotateNonce(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "rotate nonce failed", "error", err)
		return common.ErrorInternal
	}
	if !s.checkNonce(current, nonce) {
		return common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return passDomainError(ctx, s.logger, "get user", err)
	}

	ok, err := cryptox.VerifyAuthString(user.AuthStringHash, authString)
	if err != nil {
		s.logger.Error(ctx, "verify auth string failed", "user_id", user.ID, "error", err)
		return common.ErrorInternal
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	if err := s.issueOTP(ctx, email); err != nil {
		return err
	}
	if !user.IsVerified {
		// the code just sent completes VerifyCreation instead
		return common.ErrUnverified
	}
	return nil
}

// rotateNonce replaces the stored nonce with a fresh one and returns the
// value it replaced.
func (s *UserService) rotateNonce(ctx context.Context, email string) (int32, error) {
	var previous int32
	err := dbx.WithTxRetry(ctx, s.db, nil, dbx.DefaultTxAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.SigninNonces(tx)
		current, err := repo.GetForUpdate(ctx, email)
		if err != nil {
			return err
		}
		next, err := freshNonce(current)
		if err != nil {
			return err
		}
		if err := repo.Set(ctx, email, next); err != nil {
			return err
		}
		previous = current
		return nil
	})
	return previous, err
}

// freshNonce draws a random nonce different from previous.
func freshNonce(previous int32) (int32, error) {
	for {
		n, err := common.RandomInt32()
		if err != nil {
			return 0, err
		}
		if n != previous {
			return n, nil
		}
	}
}

func (s *UserService) issueOTP(ctx context.Context, email string) error {
	code, err := cryptox.GenerateOTP()
	if err != nil {
		s.logger.Error(ctx, "generate otp failed", "error", err)
		return common.ErrorInternal
	}

	if err := s.repomanager.OTPs(s.db).Upsert(ctx, s.oneTimeCode(email, code)); err != nil {
		return passDomainError(ctx, s.logger, "store otp", err)
	}

	if err := s.otpSender.SendOTP(ctx, email, code); err != nil {
		s.logger.Error(ctx, "send otp failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

func (s *UserService) oneTimeCode(email, code string) *models.OneTimeCode {
	return &models.OneTimeCode{
		Email:      email,
		Code:       code,
		Expiration: s.clock.Now().Add(s.otpValidityDuration),
	}
}

// consumeOTP deletes the stored code if it matches and has not expired.
func (s *UserService) consumeOTP(ctx context.Context, tx dbx.DBTX, email, code string) error {
	otpRepo := s.repomanager.OTPs(tx)
	otp, err := otpRepo.GetForUpdate(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 || s.clock.Now().After(otp.Expiration) {
		return common.ErrorUnauthorized
	}
	return otpRepo.Delete(ctx, email)
}

// VerifyOTP consumes a valid one-time code and opens a session. Attempts are
// capped per window regardless of outcome.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (*TokenPair, error) {
	if err := s.limiter.Enforce(ctx, throttle.Key("verify_otp", email), s.otpMaxAttempts, s.throttleWindow); err != nil {
		return nil, err
	}

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if !user.IsVerified {
			return common.ErrUnverified
		}
		if err := s.consumeOTP(ctx, tx, email, code); err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, auth.Identity{UserID: user.ID, Email: user.Email}, tx)
		return err
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "verify otp", err)
	}
	return pair, nil
}

// RefreshToken redeems a single-use refresh token for a fresh TokenPair.
// Unknown or already redeemed tokens yield ErrorUnauthorized, expired ones
// ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		if token.ExpiresAt.Before(s.clock.Now()) {
			return common.ErrRefreshTokenExpired
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error getting user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, auth.Identity{UserID: user.ID, Email: user.Email}, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the caller's refresh token. A token already redeemed or
// purged is not an error; one issued to another user is refused and the
// deletion rolled back.
func (s *UserService) Logout(ctx context.Context, user auth.Identity, refreshToken string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if token.UserID != user.UserID {
			return common.ErrorUnauthorized
		}
		return nil
	})
	return passDomainError(ctx, s.logger, "logout", err)
}

// GetUserPublicKey returns the key invitations to email must be encrypted with.
func (s *UserService) GetUserPublicKey(ctx context.Context, email string) (*models.UserPublicKey, error) {
	key, err := s.repomanager.Users(s.db).GetPublicKey(ctx, email)
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "get public key", err)
	}
	return key, nil
}

// RotatePublicKey replaces the user's invitation key if expectedPreviousKeyID
// is still current, and returns the id of the new key.
func (s *UserService) RotatePublicKey(ctx context.Context, user auth.Identity, publicKey []byte, expectedPreviousKeyID uuid.UUID) (uuid.UUID, error) {
	if _, err := cryptox.ParseRSAPublicKey(publicKey); err != nil {
		return uuid.Nil, common.ErrMalformed
	}

	newKey := &models.UserPublicKey{ID: uuid.New(), Value: publicKey}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		current, err := repo.GetPublicKeyIDForUpdate(ctx, user.UserID)
		if err != nil {
			return err
		}
		if current != expectedPreviousKeyID {
			return common.ErrOutOfDate
		}
		return repo.SetPublicKey(ctx, user.UserID, newKey)
	})
	if err != nil {
		return uuid.Nil, passDomainError(ctx, s.logger, "rotate public key", err)
	}
	return newKey.ID, nil
}

func (s *UserService) EditKeystore(ctx context.Context, user auth.Identity, blob, expectedDigest []byte) ([]byte, error) {
	return s.updateUserBlob(ctx, blobs.UserKeystores, user.UserID, blob, expectedDigest)
}

func (s *UserService) EditPreferences(ctx context.Context, user auth.Identity, blob, expectedDigest []byte) ([]byte, error) {
	return s.updateUserBlob(ctx, blobs.UserPreferences, user.UserID, blob, expectedDigest)
}

func (s *UserService) updateUserBlob(ctx context.Context, table blobs.Table, userID uuid.UUID, blob, expectedDigest []byte) ([]byte, error) {
	var digest []byte
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		digest, err = s.repomanager.Blobs(tx).Update(ctx, blobs.Target{Table: table, ID: userID}, blob, expectedDigest)
		return err
	})
	if err != nil {
		return nil, passDomainError(ctx, s.logger, "update "+string(table), err)
	}
	return digest, nil
}

// DeleteUser removes the account. accessTokens name the budgets the user
// belongs to; their keys are deleted and any budget left without members is
// deleted with them.
func (s *UserService) DeleteUser(ctx context.Context, user auth.Identity, accessTokens []string) error {
	grants, err := s.access.VerifyMultiple(ctx, accessTokens)
	if err != nil {
		return err
	}

	err = dbx.WithTxRetry(ctx, s.db, nil, dbx.DefaultTxAttempts, func(ctx context.Context, tx dbx.DBTX) error {
		for _, g := range grants {
			if err := removeMember(ctx, s.repomanager, tx, g.KeyID, g.BudgetID); err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}
		return s.repomanager.Users(tx).Delete(ctx, user.UserID)
	})
	return passDomainError(ctx, s.logger, "delete user", err)
}

// --- helpers below ---

func (s *UserService) generateAccessToken(id auth.Identity) (string, error) {
	return auth.GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) checkNonce(stored, candidate int32) bool {
	return subtle.ConstantTimeEq(stored, candidate) == 1
}

func (s *UserService) generateTokenPair(ctx context.Context, id auth.Identity, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(id)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	expiresAt := s.clock.Now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, id.UserID, refresh, expiresAt); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
