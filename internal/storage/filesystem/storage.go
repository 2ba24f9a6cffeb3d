package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CameronXie/tailor-ledger/internal/storage"
)

const mediaAudience = "media"

// MediaClaims bind a media token to one key and an optional rendition width.
type MediaClaims struct {
	Key   string `json:"key"`
	Width int    `json:"w,omitempty"`
	jwt.RegisteredClaims
}

// Storage keeps objects as files below a root directory and signs URLs that
// the media handler verifies.
type Storage struct {
	root    string
	baseURL string
	secret  []byte
	now     func() time.Time
}

func New(root, baseURL string, secret []byte) (*Storage, error) {
	if len(secret) == 0 {
		return nil, errors.New("media signing secret is empty")
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	return &Storage{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}, nil
}

func (s *Storage) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}

	return nil
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	return data, nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	objects := make([]storage.Object, 0)

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		objects = append(objects, storage.Object{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
	}

	return objects, nil
}

// Delete removes the given keys. Missing files are not an error.
func (s *Storage) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		p, err := s.path(key)
		if err != nil {
			return err
		}

		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}

	return nil
}

func (s *Storage) SignedURL(_ context.Context, key string, opts storage.SignOptions) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}

	now := s.now()
	claims := MediaClaims{
		Key:   key,
		Width: opts.Width,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{mediaAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.Expiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign media token for %s: %w", key, err)
	}

	return fmt.Sprintf("%s/media/%s?token=%s", s.baseURL, (&url.URL{Path: key}).EscapedPath(), url.QueryEscape(token)), nil
}

// Verify checks a media token against the requested key and returns the bound width.
func (s *Storage) Verify(key, token string) (int, error) {
	claims := new(MediaClaims)
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(mediaAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("invalid media token: %w", err)
	}

	if claims.Key != key {
		return 0, errors.New("invalid media token: key mismatch")
	}

	return claims.Width, nil
}

func (s *Storage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}
