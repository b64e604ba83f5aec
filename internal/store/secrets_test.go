package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halim/toolgate/pkg/engine"
	"github.com/halim/toolgate/pkg/security"
)

func testKey() security.SecretKey {
	return security.SecretKey{
		Scope:    security.ScopeUser,
		UserID:   "u1",
		Provider: "weatherco",
		Tag:      "api key",
	}
}

func TestSetAndGetSecret(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetSecret(ctx(), testKey(), "sekret"))

	value, err := s.GetSecret(ctx(), testKey())
	require.NoError(t, err)
	assert.Equal(t, "sekret", value)
}

func TestGetSecretMissingReturnsEmpty(t *testing.T) {
	s := openTestStore(t)

	value, err := s.GetSecret(ctx(), testKey())
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetSecretReplaces(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetSecret(ctx(), testKey(), "old"))
	require.NoError(t, s.SetSecret(ctx(), testKey(), "new"))

	value, err := s.GetSecret(ctx(), testKey())
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestSecretsAreScopedPerUser(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetSecret(ctx(), testKey(), "sekret"))

	other := testKey()
	other.UserID = "u2"
	value, err := s.GetSecret(ctx(), other)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestDeleteSecret(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SetSecret(ctx(), testKey(), "sekret"))
	require.NoError(t, s.DeleteSecret(ctx(), testKey()))

	value, err := s.GetSecret(ctx(), testKey())
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestUserToolLinkLifecycle(t *testing.T) {
	s := openTestStore(t)

	// No link yet reads as unset.
	status, err := s.GetUserToolStatus(ctx(), "u1", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, engine.LinkStatusUnset, status)

	require.NoError(t, s.GetOrCreateUserToolLink(ctx(), "u1", "", "t1"))
	require.NoError(t, s.UpdateUserToolStatus(ctx(), "u1", "", "t1", engine.LinkStatusActive))

	status, err = s.GetUserToolStatus(ctx(), "u1", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, engine.LinkStatusActive, status)

	// Re-creating must not clobber the existing status.
	require.NoError(t, s.GetOrCreateUserToolLink(ctx(), "u1", "", "t1"))
	status, err = s.GetUserToolStatus(ctx(), "u1", "", "t1")
	require.NoError(t, err)
	assert.Equal(t, engine.LinkStatusActive, status)
}

func TestUpdateUserToolStatusRejectsUnknownStatus(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.GetOrCreateUserToolLink(ctx(), "u1", "", "t1"))
	require.Error(t, s.UpdateUserToolStatus(ctx(), "u1", "", "t1", "bogus"))
}
