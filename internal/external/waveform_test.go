package external

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/apperrors"
	"github.com/kshepherd/vibin-go/internal/mediaserver"
	"github.com/kshepherd/vibin-go/internal/model"
)

// fakeMediaServer is a minimal mediaserver.Adapter stub; only DIDLForTrack
// is exercised by WaveformGenerator.
type fakeMediaServer struct {
	resourceURI string
	err         error
}

func (f *fakeMediaServer) Name() string      { return "fake" }
func (f *fakeMediaServer) DeviceUDN() string { return "uuid:fake" }
func (f *fakeMediaServer) Children(ctx context.Context, parentId model.MediaId) ([]model.MediaFolder, []model.Track, error) {
	return nil, nil, nil
}
func (f *fakeMediaServer) Metadata(ctx context.Context, id model.MediaId) (model.Track, error) {
	return model.Track{}, nil
}
func (f *fakeMediaServer) Albums(ctx context.Context) ([]model.Album, error)    { return nil, nil }
func (f *fakeMediaServer) NewAlbums(ctx context.Context) ([]model.Album, error) { return nil, nil }
func (f *fakeMediaServer) Artists(ctx context.Context) ([]model.Artist, error)  { return nil, nil }
func (f *fakeMediaServer) Tracks(ctx context.Context) ([]model.Track, error)    { return nil, nil }
func (f *fakeMediaServer) ClearCaches()                                        {}
func (f *fakeMediaServer) IdsFromFilename(stem string) mediaserver.FilenameIds {
	return mediaserver.FilenameIds{}
}
func (f *fakeMediaServer) DIDLForTrack(ctx context.Context, trackId model.MediaId) (string, string, error) {
	return "", f.resourceURI, f.err
}
func (f *fakeMediaServer) DIDLForAlbum(ctx context.Context, albumId model.MediaId) (string, string, error) {
	return "", "", nil
}
func (f *fakeMediaServer) FindTrackMediaId(ctx context.Context, album, artist, title string, trackNumber int) (model.MediaId, bool) {
	return "", false
}
func (f *fakeMediaServer) FindAlbumMediaId(ctx context.Context, album, artist string) (model.MediaId, bool) {
	return "", false
}

func TestWaveformMissingDependencyWhenBinaryAbsent(t *testing.T) {
	// audiowaveform is not installed in this sandbox, so LookPath always
	// fails here, deterministically exercising the missing-dependency path.
	gen := NewWaveformGenerator(&fakeMediaServer{resourceURI: "http://example.invalid/track.flac"})

	_, err := gen.Waveform(context.Background(), "track-1", WaveformJSON, 0, 0)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *apperrors.AppError, got %T", err)
	require.Equal(t, apperrors.ErrorCodeMissingDependencyError, appErr.Code)
}
