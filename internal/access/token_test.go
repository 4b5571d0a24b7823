package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/ctxutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken("s3cret", 42, []string{"teacher"}, time.Hour)
	require.NoError(t, err)

	ctx, err := DefaultRoleTable().ContextFromToken(context.Background(), "s3cret", tok)
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.Equal(t, int64(42), rd.UserID)
	assert.True(t, rd.Has(CapEvaluate))
	assert.False(t, rd.Has(CapManage))
}

func TestParseTokenRejects(t *testing.T) {
	tok, err := IssueToken("s3cret", 42, nil, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other", tok)
	assert.Error(t, err)

	expired, err := IssueToken("s3cret", 42, nil, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s3cret", expired)
	assert.Error(t, err)

	_, err = IssueToken("s3cret", 0, nil, time.Hour)
	assert.Error(t, err)
	_, err = IssueToken("", 1, nil, time.Hour)
	assert.Error(t, err)
}
