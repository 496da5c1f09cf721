package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

// reservedUsernames collide with top-level routes and cannot be registered.
var reservedUsernames = map[string]struct{}{
	"about": {}, "admin": {}, "auth": {}, "follow": {}, "group": {}, "groups": {},
	"health": {}, "media": {}, "new": {}, "unfollow": {}, "users": {},
}

func usernameTaken() error {
	return invalid("username", "a user with that username already exists")
}

// Session is what signup and login hand back to the client.
type Session struct {
	User  models.User
	Token string
}

// Accounts registers users and exchanges credentials for bearer tokens.
type Accounts struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
}

func NewAccounts(db *gorm.DB, secret string, ttl time.Duration) *Accounts {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Accounts{db: db, secret: secret, ttl: ttl}
}

// Signup creates a user and signs them in.
func (a *Accounts) Signup(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return Session{}, invalid("username", "letters, digits and @/./+/-/_ only")
	}
	if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
		return Session{}, invalid("username", "this username is not available")
	}
	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return Session{}, invalid("password", "must be at least 8 characters")
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "hash password")
	}

	db := a.db.WithContext(ctx)
	if _, err := userByUsername(db, username); err == nil {
		return Session{}, usernameTaken()
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	// The lookup above is only a fast path; the unique index on username_lower decides races.
	user := models.User{Username: username, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Session{}, usernameTaken()
		}
		if _, lookupErr := userByUsername(db, username); lookupErr == nil {
			return Session{}, usernameTaken()
		}
		return Session{}, errors.Wrap(err, "create user")
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	return a.issue(user)
}

// Login checks the password and returns a fresh token. Unknown users and wrong passwords look the same.
func (a *Accounts) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := userByUsername(a.db.WithContext(ctx), username)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrUnauthorized
	}
	return a.issue(user)
}

func (a *Accounts) issue(user models.User) (Session, error) {
	token, err := utils.GenerateToken(a.secret, user.ID, user.Username, a.ttl)
	if err != nil {
		return Session{}, errors.Wrap(err, "sign token")
	}
	return Session{User: user, Token: token}, nil
}

// TTL is the lifetime of issued tokens.
func (a *Accounts) TTL() time.Duration { return a.ttl }
