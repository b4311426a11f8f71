package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/Chebah-Amine/bid-marketplace/internal/models"
)

var (
	ErrPasswordMismatch   = errors.New("passwords must match")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

type IAccountService interface {
	Register(ctx context.Context, username, email, password, confirmation string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type accountService struct {
	db         *sql.DB
	bcryptCost int
}

func NewAccountService(db *sql.DB, bcryptCost int) IAccountService {
	return &accountService{db: db, bcryptCost: bcryptCost}
}

// Register creates a user after checking that the password matches its
// confirmation. The unique index on username is the duplicate guard; a
// violation surfaces as ErrUsernameTaken.
func (svc *accountService) Register(ctx context.Context, username, email, password, confirmation string) (*models.User, error) {
	if password != confirmation {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), svc.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email}
	err = svc.db.QueryRowContext(ctx, `
	  INSERT INTO users (username, email, password_hash)
	       VALUES ($1, $2, $3)
	    RETURNING id, created_at`,
		username, email, string(hash),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks the credentials and returns the matching user. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (svc *accountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user := &models.User{}
	err := svc.db.QueryRowContext(ctx, `
	  SELECT id, username, email, password_hash, created_at
	    FROM users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
