package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos/testutil"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

func TestFileUploadAreaRoundTrip(t *testing.T) {
	k := AreaKey{ItemID: 9, Version: 3, UserID: 42}
	assert.Equal(t, "type_fileupload_9_3", k.Area())

	id, v, ok := ParseFileUploadArea(k.Area())
	require.True(t, ok)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, 3, v)

	for _, bad := range []string{"intro", "type_fileupload_", "type_fileupload_9", "type_fileupload_x_1", "type_fileupload_9_0"} {
		_, _, ok := ParseFileUploadArea(bad)
		assert.False(t, ok, bad)
	}

	f := k.Filter(100)
	assert.Equal(t, int64(100), f.ContextID)
	assert.Equal(t, training.Component, f.Component)
	require.NotNil(t, f.ItemID)
	assert.Equal(t, int64(42), *f.ItemID)
	assert.Nil(t, k.AllUsers(100).ItemID)
}

func TestHashAndBlobKey(t *testing.T) {
	h := Hash([]byte("hello"))
	assert.Len(t, h, 64)
	assert.Equal(t, h, Hash([]byte("hello")))
	assert.NotEqual(t, h, Hash([]byte("hello!")))
	assert.Equal(t, h[:2]+"/"+h, BlobKey(h))
}

func TestDiskPool(t *testing.T) {
	ctx := context.Background()
	pool, err := NewDiskPool(t.TempDir(), testutil.Logger(t))
	require.NoError(t, err)

	data := []byte("certificate bytes")
	h := Hash(data)

	ok, err := pool.Has(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, pool.Put(ctx, h, data))
	require.NoError(t, pool.Put(ctx, h, data))

	ok, err = pool.Has(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, pool.Delete(ctx, h))
	_, err = pool.Open(ctx, h)
	assert.ErrorIs(t, err, ErrBlobNotFound)
	require.NoError(t, pool.Delete(ctx, h))
}

func TestStoreLifecycle(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	pool, err := NewDiskPool(t.TempDir(), log)
	require.NoError(t, err)
	st := NewStore(repos.NewStoredFileRepo(db, log), pool, log)

	key := AreaKey{ItemID: 5, Version: 1, UserID: 42}
	uid := int64(42)
	f, err := st.Create(dbc, FileRecord{
		ContextID: 10,
		Component: training.Component,
		FileArea:  key.Area(),
		ItemID:    key.UserID,
		FileName:  "../../etc/cert.pdf",
		UserID:    &uid,
	}, []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "cert.pdf", f.FileName)
	assert.Equal(t, "/", f.FilePath)
	assert.Equal(t, "application/pdf", f.MimeType)

	_, err = st.Create(dbc, FileRecord{ContextID: 10, Component: training.Component, FileArea: key.Area(), ItemID: 42, FileName: "cert.pdf"}, []byte("other"))
	require.Error(t, err)

	moved := AreaKey{ItemID: 9, Version: 1, UserID: 42}
	cp, err := st.CopyToArea(dbc, f, FileRecord{ContextID: 20, FileArea: moved.Area(), ItemID: moved.UserID})
	require.NoError(t, err)
	assert.Equal(t, f.ContentHash, cp.ContentHash)
	assert.Equal(t, "cert.pdf", cp.FileName)

	got, err := st.ReadAll(ctx, cp)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))

	n, err := st.DeleteArea(dbc, key.Filter(10))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := st.ListArea(dbc, moved.Filter(20))
	require.NoError(t, err)
	require.Len(t, left, 1)

	// The blob survives record deletion.
	got, err = st.ReadAll(ctx, left[0])
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))
}

func TestStoreRejectsEmptyName(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	pool, err := NewDiskPool(t.TempDir(), log)
	require.NoError(t, err)
	st := NewStore(repos.NewStoredFileRepo(db, log), pool, log)

	_, err = st.Create(dbctx.Context{Ctx: context.Background()}, FileRecord{ContextID: 1, Component: training.Component, FileArea: IntroArea, FileName: "  "}, []byte("x"))
	require.Error(t, err)
}
