package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/repository/repotest"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

type fakePhotoStore struct {
	keys  []string
	types []string
	sizes []int64
	err   error
}

func (f *fakePhotoStore) PutPhoto(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", errors.New("size mismatch")
	}
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	f.sizes = append(f.sizes, size)
	return "https://cdn.example.com/" + key, nil
}

func photoUpload(data []byte, contentType string) PhotoUpload {
	header := &multipart.FileHeader{
		Filename: "photo",
		Header:   textproto.MIMEHeader{},
		Size:     int64(len(data)),
	}
	if contentType != "" {
		header.Header.Set("Content-Type", contentType)
	}
	return PhotoUpload{File: memFile{bytes.NewReader(data)}, Header: header}
}

func pngBytes(size int) []byte {
	data := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(data, bytes.Repeat([]byte{0}, size-len(data))...)
}

func newTeamService(store *repotest.TeamStore, photos PhotoStore) *TeamService {
	return NewTeamService(store, photos, 1024, time.Second, zerolog.Nop())
}

func TestTeamCreateAndList(t *testing.T) {
	store := repotest.NewTeamStore()
	svc := newTeamService(store, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTeamPhoto, first.Photo)
	assert.True(t, first.IsActive)

	time.Sleep(2 * time.Millisecond)
	second, err := svc.Create(ctx, CreateTeamMemberInput{
		Name: "Meera", Position: "Advisor", Experience: "8 years",
		Photo: "https://cdn.example.com/meera.jpg", Specialization: "Insurance",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/meera.jpg", second.Photo)

	members, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, second.ID, members[0].ID, "newest first")
}

func TestTeamCreateValidation(t *testing.T) {
	svc := newTeamService(repotest.NewTeamStore(), nil)

	tests := map[string]struct {
		input CreateTeamMemberInput
		field string
	}{
		"missing name":       {CreateTeamMemberInput{Position: "P", Experience: "1"}, "name"},
		"missing position":   {CreateTeamMemberInput{Name: "N", Experience: "1"}, "position"},
		"missing experience": {CreateTeamMemberInput{Name: "N", Position: "P"}, "experience"},
		"blank position":     {CreateTeamMemberInput{Name: "N", Position: "  ", Experience: "1"}, "position"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))

			var de *DomainError
			require.True(t, errors.As(err, &de))
			assert.Contains(t, de.Fields, tt.field)
		})
	}
}

func TestTeamUpdateIsPartial(t *testing.T) {
	svc := newTeamService(repotest.NewTeamStore(), nil)
	ctx := context.Background()

	member, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)

	position := "Managing Director"
	updated, err := svc.Update(ctx, member.ID, UpdateTeamMemberInput{Position: &position})
	require.NoError(t, err)
	assert.Equal(t, "Managing Director", updated.Position)
	assert.Equal(t, "Anil", updated.Name)
	assert.Equal(t, "20 years", updated.Experience)

	empty := ""
	_, err = svc.Update(ctx, member.ID, UpdateTeamMemberInput{Name: &empty})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Update(ctx, "missing", UpdateTeamMemberInput{Position: &position})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTeamDeactivateHidesFromPublicList(t *testing.T) {
	store := repotest.NewTeamStore()
	svc := newTeamService(store, nil)
	ctx := context.Background()

	member, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, member.ID))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	assert.Equal(t, KindNotFound, KindOf(svc.Deactivate(ctx, "missing")))
}

func TestTeamUploadPhoto(t *testing.T) {
	photos := &fakePhotoStore{}
	svc := newTeamService(repotest.NewTeamStore(), photos)
	ctx := context.Background()

	member, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)

	updated, err := svc.UploadPhoto(ctx, member.ID, photoUpload(pngBytes(700), "image/png"))
	require.NoError(t, err)

	require.Len(t, photos.keys, 1)
	assert.True(t, strings.HasPrefix(photos.keys[0], "team/"+member.ID+"/"))
	assert.True(t, strings.HasSuffix(photos.keys[0], ".png"))
	assert.Equal(t, "image/png", photos.types[0])
	assert.Equal(t, int64(700), photos.sizes[0])
	assert.Equal(t, "https://cdn.example.com/"+photos.keys[0], updated.Photo)
}

func TestTeamUploadPhotoRejects(t *testing.T) {
	photos := &fakePhotoStore{}
	svc := newTeamService(repotest.NewTeamStore(), photos)
	ctx := context.Background()

	member, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)

	tests := map[string]PhotoUpload{
		"svg":           photoUpload([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), "image/svg+xml"),
		"html":          photoUpload([]byte("<html><body>hi</body></html>"), ""),
		"type mismatch": photoUpload(pngBytes(100), "image/jpeg"),
		"too large":     photoUpload(pngBytes(2048), "image/png"),
		"no file":       {},
	}
	for name, upload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UploadPhoto(ctx, member.ID, upload)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
	assert.Empty(t, photos.keys)

	_, err = svc.UploadPhoto(ctx, "missing", photoUpload(pngBytes(100), "image/png"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestTeamUploadPhotoStorageFailure(t *testing.T) {
	photos := &fakePhotoStore{err: errors.New("bucket unreachable")}
	svc := newTeamService(repotest.NewTeamStore(), photos)
	ctx := context.Background()

	member, err := svc.Create(ctx, CreateTeamMemberInput{Name: "Anil", Position: "Director", Experience: "20 years"})
	require.NoError(t, err)

	_, err = svc.UploadPhoto(ctx, member.ID, photoUpload(pngBytes(100), "image/png"))
	assert.Equal(t, KindInfrastructure, KindOf(err))
}

func TestTeamStoreFailure(t *testing.T) {
	store := repotest.NewTeamStore()
	store.Err = errors.New("db down")
	svc := newTeamService(store, nil)

	_, err := svc.ListActive(context.Background())
	assert.Equal(t, KindInfrastructure, KindOf(err))
}
