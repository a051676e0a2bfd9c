package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-signup/app/entity"
	"github.com/vibast-solutions/ms-go-signup/app/repository"
	"github.com/vibast-solutions/ms-go-signup/app/security"
	"github.com/vibast-solutions/ms-go-signup/app/types"
	"github.com/vibast-solutions/ms-go-signup/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserExists      = errors.New("username or email already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrWeakPassword    = errors.New("password does not meet policy requirements")
	ErrInvalidToken    = errors.New("invalid token")
	ErrStaleToken      = errors.New("token has been superseded")
	ErrAlreadyVerified = errors.New("account already verified")
)

const (
	RoleUser = "ROLE_USER"

	dispatchTimeout = 30 * time.Second
)

type SignUpState string

const (
	StateRequested           SignUpState = "REQUESTED"
	StatePendingVerification SignUpState = "PENDING_VERIFICATION"
	StateVerified            SignUpState = "VERIFIED"
	StateRejected            SignUpState = "REJECTED"
)

type userDirectory interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	ExistsEnabledByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	EnablePending(ctx context.Context, userID uint64, token string) (bool, error)
}

type tokenCodec interface {
	Issue(username string) (string, error)
	Parse(token string) (*security.VerificationClaims, error)
}

type tokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type signUpNotifier interface {
	SendVerificationEmail(ctx context.Context, user *entity.User, encodedToken string) error
	SendConfirmationEmail(ctx context.Context, user *entity.User) error
}

type SignUpService interface {
	Register(ctx context.Context, req *types.SignUpRequest) (*types.SignUpResult, error)
	Verify(ctx context.Context, sealedToken string) (*entity.User, error)
}

// AsyncRunner executes fire-and-forget work outside the request.
type AsyncRunner func(task func())

type SignUpServiceOption func(*signUpService)

type signUpService struct {
	db          *sql.DB
	users       userDirectory
	tokens      tokenCodec
	sealer      tokenSealer
	notifier    signUpNotifier
	cfg         *config.Config
	asyncRunner AsyncRunner
}

func NewSignUpService(
	db *sql.DB,
	users userDirectory,
	tokens tokenCodec,
	sealer tokenSealer,
	notifier signUpNotifier,
	cfg *config.Config,
	opts ...SignUpServiceOption,
) SignUpService {
	svc := &signUpService{
		db:       db,
		users:    users,
		tokens:   tokens,
		sealer:   sealer,
		notifier: notifier,
		cfg:      cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) SignUpServiceOption {
	return func(s *signUpService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func (s *signUpService) Register(ctx context.Context, req *types.SignUpRequest) (*types.SignUpResult, error) {
	req.Normalize()
	log := logrus.WithFields(logrus.Fields{
		"username": req.Username,
		"state":    StateRequested,
	})

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	if err := s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	taken, err := s.users.ExistsEnabledByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		log.WithField("state", StateRejected).Warn("Sign-up rejected: username or email already exists")
		return nil, ErrUserExists
	}

	pending, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		taken, err = s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
		if err != nil {
			return nil, err
		}
	} else {
		// a disabled account without a token was verified once and is not pending
		taken = !pending.VerificationToken.Valid || pending.Email != req.Email
	}
	if taken {
		log.WithField("state", StateRejected).Warn("Sign-up rejected: identity held by another pending registration")
		return nil, ErrUserExists
	}

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *entity.User
	if pending != nil {
		user, err = s.supersede(ctx, pending, string(hashedPassword), token)
	} else {
		user, err = s.create(ctx, req, string(hashedPassword), token)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.WithField("state", StateRejected).Warn("Sign-up rejected: unique constraint violated")
			return nil, ErrUserExists
		}
		return nil, err
	}

	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return nil, err
	}
	logrus.WithField("public_id", user.PublicID).Debugf("Encrypted verification token: %s", sealed)

	s.dispatch(user, "verification", func(ctx context.Context) error {
		return s.notifier.SendVerificationEmail(ctx, user, sealed)
	})

	log.WithFields(logrus.Fields{
		"public_id": user.PublicID,
		"state":     StatePendingVerification,
	}).Info("Sign-up pending verification")

	return &types.SignUpResult{
		PublicID: user.PublicID,
		Username: user.Username,
		Email:    user.Email,
		State:    string(StatePendingVerification),
	}, nil
}

func (s *signUpService) Verify(ctx context.Context, sealedToken string) (*entity.User, error) {
	token, err := s.sealer.Open(sealedToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	log := logrus.WithField("username", claims.Subject)

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Enabled {
		return nil, ErrAlreadyVerified
	}
	if !user.HasVerificationToken(token) {
		return nil, ErrStaleToken
	}

	enabled, err := s.users.EnablePending(ctx, user.ID, token)
	if err != nil {
		return nil, err
	}
	if !enabled {
		// lost a race with another verification or a newer registration
		current, err := s.users.FindByUsername(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Enabled {
			return nil, ErrAlreadyVerified
		}
		return nil, ErrStaleToken
	}

	user.Enabled = true
	user.VerificationToken = sql.NullString{}

	s.dispatch(user, "confirmation", func(ctx context.Context) error {
		return s.notifier.SendConfirmationEmail(ctx, user)
	})

	log.WithFields(logrus.Fields{
		"public_id": user.PublicID,
		"state":     StateVerified,
	}).Info("Sign-up verified")

	return user, nil
}

func (s *signUpService) create(ctx context.Context, req *types.SignUpRequest, passwordHash, token string) (*entity.User, error) {
	now := time.Now()
	user := &entity.User{
		PublicID:          uuid.New().String(),
		Username:          req.Username,
		Email:             req.Email,
		PasswordHash:      passwordHash,
		Enabled:           false,
		VerificationToken: sql.NullString{String: token, Valid: true},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txUserRepo := repository.NewUserRepository(tx)
	if err = txUserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if err = txUserRepo.AddRole(ctx, user.ID, RoleUser); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	user.Roles = []string{RoleUser}
	return user, nil
}

// supersede re-issues a token for a registration that was never verified.
func (s *signUpService) supersede(ctx context.Context, user *entity.User, passwordHash, token string) (*entity.User, error) {
	user.PasswordHash = passwordHash
	user.VerificationToken = sql.NullString{String: token, Valid: true}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *signUpService) dispatch(user *entity.User, kind string, send func(ctx context.Context) error) {
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"public_id": user.PublicID,
				"email":     kind,
			}).Error("Failed to send sign-up email")
		}
	})
}
