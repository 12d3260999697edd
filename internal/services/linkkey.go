package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"cloud-backend/internal/database"
	"cloud-backend/internal/models"
)

const (
	MaxLinkKeyAttempts = 25
	linkKeyBytes       = 32
)

type TokenFunc func() (string, error)

// RandomLinkKey returns 256 random bits as unpadded base64url.
func RandomLinkKey() (string, error) {
	b := make([]byte, linkKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// LinkKeyGenerator assigns external link keys. Uniqueness is decided by the
// files_link_key_key index: a violation counts as a collision and the next
// token is tried.
type LinkKeyGenerator struct {
	files       FileRepository
	newToken    TokenFunc
	maxAttempts int
	logger      *log.Logger
}

func NewLinkKeyGenerator(files FileRepository, newToken TokenFunc) *LinkKeyGenerator {
	if newToken == nil {
		newToken = RandomLinkKey
	}
	return &LinkKeyGenerator{
		files:       files,
		newToken:    newToken,
		maxAttempts: MaxLinkKeyAttempts,
		logger:      log.New(log.Writer(), "[LinkKeyGenerator] ", log.LstdFlags),
	}
}

func (g *LinkKeyGenerator) Assign(ctx context.Context, file *models.File) error {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		key, err := g.newToken()
		if err != nil {
			return fmt.Errorf("failed to draw link key: %w", err)
		}

		err = g.files.SetFileLinkKey(ctx, file.ID, &key)
		switch {
		case err == nil:
			file.LinkKey = &key
			return nil
		case database.ViolatedConstraint(err) == database.ConstraintLinkKey:
			g.logger.Printf("Link key collision for file %s (attempt %d/%d)", file.ID, attempt, g.maxAttempts)
			continue
		case errors.Is(err, database.ErrNotFound):
			return ErrFileNotFound
		default:
			return fmt.Errorf("failed to store link key: %w", err)
		}
	}

	g.logger.Printf("Gave up generating a link key for file %s after %d attempts", file.ID, g.maxAttempts)
	return fmt.Errorf("%w after %d attempts", ErrKeyGeneration, g.maxAttempts)
}
