// Package claims issues single-use ownership-claim codes for newly
// discovered restaurants.
package claims

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/fingerprint"
	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/store"
)

// codeAlphabet excludes confusable characters (I, L, O, 0, 1) so codes
// survive being read aloud or typed from a printout.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 8

// DefaultTTL is how long an issued claim remains redeemable.
const DefaultTTL = 14 * 24 * time.Hour

// Issuer creates claim codes. Only the hash of a code is persisted; the raw
// code is written once to the operational log and is unrecoverable after.
type Issuer struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(st store.Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: st, ttl: ttl, now: time.Now}
}

// Issue generates and persists a claim for the restaurant unless any claim
// row already exists for it, claimed or expired or not. Returns true when a
// new claim was created.
func (i *Issuer) Issue(ctx context.Context, restaurantID string) (bool, error) {
	n, err := i.store.CountClaims(ctx, restaurantID)
	if err != nil {
		return false, eris.Wrap(err, "claims: count existing")
	}
	if n > 0 {
		return false, nil
	}

	code, err := GenerateCode()
	if err != nil {
		return false, eris.Wrap(err, "claims: generate code")
	}

	now := i.now().UTC()
	claim := &model.ClaimCode{
		ID:           uuid.New().String(),
		RestaurantID: restaurantID,
		CodeHash:     fingerprint.HashString(code),
		ExpiresAt:    now.Add(i.ttl),
		CreatedAt:    now,
	}
	if err := i.store.CreateClaimCode(ctx, claim); err != nil {
		return false, eris.Wrap(err, "claims: persist claim")
	}

	// The only place the raw code ever appears.
	zap.L().Info("claims: issued ownership claim",
		zap.String("restaurant_id", restaurantID),
		zap.String("code", code),
		zap.Time("expires_at", claim.ExpiresAt),
	)
	return true, nil
}

// GenerateCode produces a human-typable code in XXXX-XXXX form drawn from
// the confusable-free alphabet.
func GenerateCode() (string, error) {
	buf := make([]byte, 0, codeLength+1)
	max := big.NewInt(int64(len(codeAlphabet)))
	for n := 0; n < codeLength; n++ {
		if n == codeLength/2 {
			buf = append(buf, '-')
		}
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", eris.Wrap(err, "claims: read random")
		}
		buf = append(buf, codeAlphabet[idx.Int64()])
	}
	return string(buf), nil
}
