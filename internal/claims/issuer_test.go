package claims

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/store/storetest"
)

func TestIssue_FirstIssuance(t *testing.T) {
	st := storetest.New()
	issuer := NewIssuer(st, 0)

	created, err := issuer.Issue(context.Background(), "rest-1")
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, st.Claims, 1)
	for _, c := range st.Claims {
		assert.Equal(t, "rest-1", c.RestaurantID)
		assert.Len(t, c.CodeHash, 64, "only the hash is persisted")
		assert.WithinDuration(t, time.Now().Add(DefaultTTL), c.ExpiresAt, time.Minute)
	}
}

func TestIssue_SkipsWhenAnyClaimExists(t *testing.T) {
	st := storetest.New()
	issuer := NewIssuer(st, 0)
	ctx := context.Background()

	// Pre-existing claim that is already claimed AND expired: issuance must
	// still be skipped.
	claimed := time.Now().Add(-30 * 24 * time.Hour)
	st.Claims["old"] = &model.ClaimCode{
		ID:           "old",
		RestaurantID: "rest-1",
		CodeHash:     "x",
		ExpiresAt:    claimed.Add(14 * 24 * time.Hour),
		ClaimedAt:    &claimed,
	}

	created, err := issuer.Issue(ctx, "rest-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, st.Claims, 1)

	// A different restaurant still gets one.
	created, err = issuer.Issue(ctx, "rest-2")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIssue_PersistError(t *testing.T) {
	st := storetest.New()
	st.CreateClaimErr = eris.New("db down")
	issuer := NewIssuer(st, 0)

	created, err := issuer.Issue(context.Background(), "rest-1")
	require.Error(t, err)
	assert.False(t, created)
}

func TestGenerateCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for n := 0; n < 50; n++ {
		code, err := GenerateCode()
		require.NoError(t, err)

		require.Len(t, code, 9)
		parts := strings.Split(code, "-")
		require.Len(t, parts, 2)
		assert.Len(t, parts[0], 4)
		assert.Len(t, parts[1], 4)

		for _, ch := range parts[0] + parts[1] {
			assert.Contains(t, codeAlphabet, string(ch))
		}
		// Confusable characters never appear.
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "L")

		seen[code] = true
	}
	assert.Greater(t, len(seen), 45, "codes should be effectively unique")
}
