package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"unismart/internal/cloudinary"
	"unismart/internal/store"
)

// CodePrefix namespaces display codes in the key-value store.
const CodePrefix = "unismart_code:"

// DefaultCodeTTL bounds how long a displayed code stays valid.
const DefaultCodeTTL = 5 * time.Minute

// Code is the token shown to students as a QR image.
type Code struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// Uploader publishes rendered codes.
type Uploader interface {
	Upload(ctx context.Context, data []byte, publicID string) (*cloudinary.UploadResult, error)
}

// Codes issues and checks per-session display codes.
type Codes struct {
	kv       store.KV
	ttl      time.Duration
	uploader Uploader
	NowFunc  func() time.Time
}

// NewCodes creates a code issuer. uploader may be nil.
func NewCodes(kv store.KV, ttl time.Duration, uploader Uploader) *Codes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Codes{kv: kv, ttl: ttl, uploader: uploader, NowFunc: time.Now}
}

// Issue returns the session's current code, minting a new one when none is
// stored or the stored one is unreadable.
func (c *Codes) Issue(ctx context.Context, sessionID string) (Code, error) {
	if existing, err := c.current(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return Code{}, err
	}

	code := Code{
		Token:     sessionID + "." + uuid.NewString(),
		SessionID: sessionID,
		ExpiresAt: c.NowFunc().Add(c.ttl).UTC(),
	}
	if c.uploader != nil {
		png, err := RenderPNG(code.Token)
		if err != nil {
			return Code{}, err
		}
		res, err := c.uploader.Upload(ctx, png, "session-"+sessionID)
		if err != nil {
			return Code{}, err
		}
		code.ImageURL = res.SecureURL
	}
	raw, err := json.Marshal(code)
	if err != nil {
		return Code{}, err
	}
	if err := c.kv.Set(ctx, CodePrefix+sessionID, raw, c.ttl); err != nil {
		return Code{}, err
	}
	return code, nil
}

// Check verifies that token is the live code of sessionID.
func (c *Codes) Check(ctx context.Context, sessionID, token string) error {
	if SessionOf(token) != sessionID {
		return ErrCodeMismatch
	}
	current, err := c.current(ctx, sessionID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return ErrCodeExpired
	}
	if err != nil {
		return err
	}
	if current.Token != token {
		return ErrCodeExpired
	}
	return nil
}

func (c *Codes) current(ctx context.Context, sessionID string) (Code, error) {
	raw, err := c.kv.Get(ctx, CodePrefix+sessionID)
	if err != nil {
		return Code{}, err
	}
	var code Code
	if err := json.Unmarshal(raw, &code); err != nil || !c.NowFunc().Before(code.ExpiresAt) {
		return Code{}, store.ErrKeyNotFound
	}
	return code, nil
}

// SessionOf returns the session id a token was issued for.
func SessionOf(token string) string {
	id, _, ok := strings.Cut(token, ".")
	if !ok {
		return ""
	}
	return id
}

// RenderPNG encodes token as a 300px QR image.
func RenderPNG(token string) ([]byte, error) {
	return qrcode.Encode(token, qrcode.Medium, 300)
}
