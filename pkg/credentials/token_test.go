package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func generatedKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate key: %v", err)
		}
		testKey = k
	})
	return testKey
}

func testAccount(t *testing.T) ServiceAccount {
	return ServiceAccount{
		Email: "logger@wqlog-test.iam.gserviceaccount.com",
		KeyID: "0123456789abcdef",
		Key:   TupleFromKey(generatedKey(t)),
	}
}

func TestParseKeyTuple(t *testing.T) {
	key := generatedKey(t)
	tuple := TupleFromKey(key)

	parsed, err := ParseKeyTuple(tuple.String())
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.N.Cmp(key.N))
	assert.Equal(t, int64(key.E), parsed.E.Int64())

	rebuilt, err := parsed.PrivateKey()
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(key))

	for _, bad := range []string{"", "1, 2, 3", "1, 2, x, 4, 5", "1, 2, 3, 4, -5"} {
		_, err := ParseKeyTuple(bad)
		assert.Error(t, err, bad)
	}
}

func TestManager_TokenCaching(t *testing.T) {
	mock := clock.NewMock()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.Set(start)

	m := NewManager(testAccount(t), UseClock(mock))

	first, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, start.Add(3600*time.Second), first.Expiry)

	mock.Add(30 * time.Minute)
	second, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A token exactly at its expiry instant is expired.
	mock.Set(first.Expiry)
	third, err := m.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first.Value, third.Value)
	assert.Equal(t, first.Expiry.Add(3600*time.Second), third.Expiry)

	mock.Add(time.Hour + time.Second)
	fourth, err := m.TokenAt(mock.Now())
	require.NoError(t, err)
	assert.NotEqual(t, third.Value, fourth.Value)
	assert.Equal(t, mock.Now().Add(3600*time.Second), fourth.Expiry)
}

func TestManager_Claims(t *testing.T) {
	account := testAccount(t)
	m := NewManager(account)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tok, err := m.Generate(now)
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Value, claims, func(tk *jwt.Token) (any, error) {
		return &generatedKey(t).PublicKey, nil
	}, jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, account.KeyID, parsed.Header["kid"])
	assert.Equal(t, account.Email, claims.Issuer)
	assert.Equal(t, account.Email, claims.Subject)
	assert.Equal(t, jwt.ClaimStrings{Audience}, claims.Audience)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, now.Unix()+3600, claims.ExpiresAt.Unix())
}

func TestManager_ExpiryUsesWholeSeconds(t *testing.T) {
	m := NewManager(testAccount(t))
	now := time.Date(2024, 5, 1, 12, 0, 20, 900*int(time.Millisecond), time.UTC)

	tok, err := m.Generate(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 20, 0, time.UTC), tok.Expiry)
	assert.True(t, tok.ValidAt(now.Add(3599*time.Second)))
	assert.False(t, tok.ValidAt(tok.Expiry))
}

func TestManager_MalformedKey(t *testing.T) {
	account := testAccount(t)
	account.Key.D = big.NewInt(12345)

	m := NewManager(account)
	_, err := m.TokenAt(time.Now())

	var serr *SigningError
	assert.True(t, errors.As(err, &serr))

	_, err = NewManager(ServiceAccount{Email: "x"}).Token()
	assert.True(t, errors.As(err, &serr))
}
