package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"github.com/jmoiron/sqlx"
	"github.com/mbolis/geo-survey/config"
	"golang.org/x/crypto/bcrypt"
)

// refresh tokens outlive access tokens by far; they are single use
const refreshTTL = 8760 * time.Hour

var (
	ErrInactiveUser  = errors.New("inactive user")
	ErrCannotRefresh = errors.New("could not refresh")
)

type credentialsVerifier struct {
	db *sqlx.DB
}

func CredentialsVerifier(db *sqlx.DB) oauth.CredentialsVerifier {
	return &credentialsVerifier{db}
}

// NewBearerServer issues password grant and refresh tokens for the user table.
func NewBearerServer(db *sqlx.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db), nil)
}

// HashPassword is the counterpart of the check done in ValidateUser.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	var user struct {
		Hash     []byte `db:"password_hash"`
		IsActive bool   `db:"is_active"`
	}
	err := cs.db.GetContext(r.Context(), &user, "SELECT password_hash, is_active FROM user WHERE name = ?", username)
	if err != nil {
		return err
	}

	err = bcrypt.CompareHashAndPassword(user.Hash, []byte(password))
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrInactiveUser
	}
	return nil
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		credential,
		tokenID,
		refreshTokenID,
		time.Now().UTC().Add(refreshTTL),
	)
	return err
}

// ValidateTokenID consumes the stored refresh token, so each one works once.
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	res, err := cs.db.Exec(`
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
			AND expiration > ?`,
		credential,
		tokenID,
		refreshTokenID,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCannotRefresh
	}
	return nil
}

func (*credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
