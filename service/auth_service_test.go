package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dshuvalov/jumper-challenge/adapters/verifier"
	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T, v ports.SignatureVerifier, pub ports.EventPublisher, opts ...AuthOption) *AuthService {
	t.Helper()
	opts = append([]AuthOption{WithClock(func() time.Time { return testNow })}, opts...)
	s, err := NewAuthService(v, pub, discardLogger(), opts...)
	require.NoError(t, err)
	return s
}

func TestAuthService_IssueNonce(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
	sess := &fakeSession{}

	nonce, err := s.IssueNonce(context.Background(), sess)
	require.NoError(t, err)

	assert.Len(t, nonce, nonceLength)
	for _, r := range nonce {
		assert.True(t, strings.ContainsRune(nonceAlphabet, r), "unexpected rune %q", r)
	}
	assert.Equal(t, nonce, sess.values.Nonce)
	assert.Equal(t, 1, sess.saves)
	assert.Equal(t, core.StateNonceIssued, sess.values.State())

	again, err := s.IssueNonce(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEqual(t, nonce, again)
	assert.Equal(t, again, sess.values.Nonce)
}

func TestAuthService_IssueNonceStoreFailure(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})

	_, err := s.IssueNonce(context.Background(), &fakeSession{saveErr: errBoom})
	assert.ErrorIs(t, err, core.ErrStoreOperationFailed)
	assert.ErrorIs(t, err, errBoom)
}

func TestAuthService_VerifyThenReissue(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestAuthService(t, verifier.NewVerifier(nil), pub, WithNonceGenerator(sequence("abc123", "def456")))
	user := newSigner(t)
	sess := &fakeSession{}

	nonce, err := s.IssueNonce(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, "abc123", nonce)

	raw := user.message("abc123").String()
	signature := user.sign(t, raw)

	msg, err := s.Verify(ctx, sess, raw, signature)
	require.NoError(t, err)
	assert.Equal(t, user.address, msg.Address)
	assert.Empty(t, sess.values.Nonce)
	assert.Equal(t, user.address.Hex(), sess.values.WalletAddress)
	require.NotNil(t, sess.values.SIWE)
	assert.Equal(t, "abc123", sess.values.SIWE.Nonce)
	assert.Equal(t, []string{user.address.Hex()}, pub.verified)

	address, err := s.Me(sess)
	require.NoError(t, err)
	assert.Equal(t, user.address.Hex(), address)

	nonce, err = s.IssueNonce(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, "def456", nonce)

	_, err = s.Verify(ctx, sess, raw, signature)
	assert.ErrorIs(t, err, core.ErrNonceMismatch)
	assert.Equal(t, "def456", sess.values.Nonce, "nonce survives a failed attempt")
}

func TestAuthService_VerifyReplayRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{}, WithNonceGenerator(sequence("abc123")))
	user := newSigner(t)
	sess := &fakeSession{}

	_, err := s.IssueNonce(ctx, sess)
	require.NoError(t, err)

	raw := user.message("abc123").String()
	signature := user.sign(t, raw)

	_, err = s.Verify(ctx, sess, raw, signature)
	require.NoError(t, err)

	_, err = s.Verify(ctx, sess, raw, signature)
	assert.ErrorIs(t, err, core.ErrNonceMismatch)
}

func TestAuthService_VerifyMalformedSkipsSignatureCheck(t *testing.T) {
	v := &countingVerifier{}
	s := newTestAuthService(t, v, &recordingPublisher{})
	user := newSigner(t)
	sess := &fakeSession{values: core.Session{Nonce: "abc123"}}

	raw := user.message("abc123").String()
	withoutAddress := strings.Replace(raw, user.address.Hex()+"\n", "", 1)

	_, err := s.Verify(context.Background(), sess, withoutAddress, "0x00")
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
	assert.Zero(t, v.calls)
	assert.Equal(t, "abc123", sess.values.Nonce)
	assert.Zero(t, sess.saves)
}

func TestAuthService_VerifyProviderFailureIsNotASignatureError(t *testing.T) {
	v := &countingVerifier{err: errBoom}
	s := newTestAuthService(t, v, &recordingPublisher{}, WithNonceInvalidation(true))
	user := newSigner(t)
	sess := &fakeSession{values: core.Session{Nonce: "abc123"}}
	raw := user.message("abc123").String()

	_, err := s.Verify(context.Background(), sess, raw, user.sign(t, raw))
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, core.ErrInvalidSignature)
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, "abc123", sess.values.Nonce)
	assert.Zero(t, sess.saves)
}

func TestAuthService_VerifyWrongSignerFailsEvenWithCorrectNonce(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
	user := newSigner(t)
	attacker := newSigner(t)
	sess := &fakeSession{values: core.Session{Nonce: "abc123"}}

	raw := user.message("abc123").String()

	_, err := s.Verify(context.Background(), sess, raw, attacker.sign(t, raw))
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
	assert.False(t, sess.values.Authenticated())
}

func TestAuthService_VerifyWithoutOutstandingNonce(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
	user := newSigner(t)
	sess := &fakeSession{}

	raw := user.message("abc123").String()

	_, err := s.Verify(context.Background(), sess, raw, user.sign(t, raw))
	assert.ErrorIs(t, err, core.ErrNonceMismatch)
}

func TestAuthService_VerifyNonceIsCaseSensitive(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
	user := newSigner(t)
	sess := &fakeSession{values: core.Session{Nonce: "ABC123"}}

	raw := user.message("abc123").String()

	_, err := s.Verify(context.Background(), sess, raw, user.sign(t, raw))
	assert.ErrorIs(t, err, core.ErrNonceMismatch)
}

func TestAuthService_VerifyValidityWindowAndDomain(t *testing.T) {
	ctx := context.Background()
	user := newSigner(t)

	t.Run("expired", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
		msg := user.message("abc123")
		expired := testNow.Add(-time.Second)
		msg.ExpirationTime = &expired
		raw := msg.String()

		_, err := s.Verify(ctx, &fakeSession{values: core.Session{Nonce: "abc123"}}, raw, user.sign(t, raw))
		assert.ErrorIs(t, err, core.ErrMessageExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
		msg := user.message("abc123")
		later := testNow.Add(time.Hour)
		msg.NotBefore = &later
		raw := msg.String()

		_, err := s.Verify(ctx, &fakeSession{values: core.Session{Nonce: "abc123"}}, raw, user.sign(t, raw))
		assert.ErrorIs(t, err, core.ErrMessageExpired)
	})

	t.Run("domain mismatch", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{}, WithDomain("app.example.com"))
		raw := user.message("abc123").String()

		_, err := s.Verify(ctx, &fakeSession{values: core.Session{Nonce: "abc123"}}, raw, user.sign(t, raw))
		assert.ErrorIs(t, err, core.ErrDomainMismatch)
	})

	t.Run("domain match", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{}, WithDomain("localhost:3000"))
		raw := user.message("abc123").String()

		_, err := s.Verify(ctx, &fakeSession{values: core.Session{Nonce: "abc123"}}, raw, user.sign(t, raw))
		assert.NoError(t, err)
	})
}

func TestAuthService_NonceInvalidationOnFailure(t *testing.T) {
	ctx := context.Background()
	user := newSigner(t)
	attacker := newSigner(t)
	raw := user.message("abc123").String()

	t.Run("disabled by default", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{})
		sess := &fakeSession{values: core.Session{Nonce: "abc123"}}

		_, err := s.Verify(ctx, sess, raw, attacker.sign(t, raw))
		require.ErrorIs(t, err, core.ErrInvalidSignature)
		assert.Equal(t, "abc123", sess.values.Nonce)

		_, err = s.Verify(ctx, sess, raw, user.sign(t, raw))
		assert.NoError(t, err)
	})

	t.Run("enabled", func(t *testing.T) {
		s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{}, WithNonceInvalidation(true))
		sess := &fakeSession{values: core.Session{Nonce: "abc123"}}

		_, err := s.Verify(ctx, sess, raw, attacker.sign(t, raw))
		require.ErrorIs(t, err, core.ErrInvalidSignature)
		assert.Empty(t, sess.values.Nonce)
		assert.Equal(t, 1, sess.saves)

		_, err = s.Verify(ctx, sess, raw, user.sign(t, raw))
		assert.ErrorIs(t, err, core.ErrNonceMismatch)
	})
}

func TestAuthService_VerifyPublishFailureIsNotFatal(t *testing.T) {
	s := newTestAuthService(t, verifier.NewVerifier(nil), &recordingPublisher{err: errBoom})
	user := newSigner(t)
	sess := &fakeSession{values: core.Session{Nonce: "abc123"}}
	raw := user.message("abc123").String()

	_, err := s.Verify(context.Background(), sess, raw, user.sign(t, raw))
	require.NoError(t, err)
	assert.True(t, sess.values.Authenticated())
}

func TestAuthService_LogoutAndMe(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestAuthService(t, verifier.NewVerifier(nil), pub)
	sess := &fakeSession{values: core.Session{WalletAddress: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"}}

	require.NoError(t, s.Logout(context.Background(), sess))
	assert.True(t, sess.destroyed)
	assert.Equal(t, []string{"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"}, pub.logouts)

	_, err := s.Me(sess)
	assert.ErrorIs(t, err, core.ErrNoWallet)
}
