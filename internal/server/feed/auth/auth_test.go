package auth_test

import (
	"testing"

	"github.com/padmux/padmux/internal/server/feed/auth"
	"github.com/stretchr/testify/assert"
)

func TestGenKey(t *testing.T) {

	key, err := auth.GenerateKey()
	assert.NoError(t, err)
	assert.Len(t, key, auth.AutoGenKeyLength)
	assert.Regexp(t, "^[0-9A-Za-z]{16}$", key)

}

func BenchmarkGenKey(b *testing.B) {
	var key string
	var err error
	for i := 0; i < b.N; i++ {
		key, err = auth.GenerateKey()
	}
	assert.NoError(b, err)
	assert.Len(b, key, auth.AutoGenKeyLength)
}

func TestDeriveKey(t *testing.T) {

	type testCase struct {
		name      string
		password  string
		expectErr bool
	}

	testCases := []testCase{
		{
			name:     "Normal Password",
			password: "password123",
		},
		{
			name:     "Simple Password",
			password: "1",
		},
		{
			name:      "empty password",
			password:  "",
			expectErr: true,
		},
		{
			name:     "long password",
			password: "dkfghdfg90d78h350ß8dgfjkdfg#---23489dfg!!!@!@#$$%&/()=",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			derivedKey, err := auth.DeriveKey(tc.password)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, derivedKey, 32)

			again, err := auth.DeriveKey(tc.password)
			assert.NoError(t, err)
			assert.Equal(t, derivedKey, again)
		})
	}
}

func TestDeriveKeyDistinctPasswords(t *testing.T) {
	a, err := auth.DeriveKey("password123")
	assert.NoError(t, err)
	b, err := auth.DeriveKey("password124")
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, 32)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)

	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}

	sessionKey := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Len(t, sessionKey, 32)

	sessionKey2 := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Equal(t, sessionKey, sessionKey2)

	clientNonce[0] = 99
	sessionKey3 := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.NotEqual(t, sessionKey, sessionKey3)
}
