package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/apperrors"
)

func TestResolveStreamerLoadsURLSpecifierDirectly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDescription))
	}))
	defer server.Close()

	opts := Options{ProbeTimeout: time.Second}
	desc, err := ResolveStreamer(context.Background(), server.URL+"/description.xml", opts)
	require.NoError(t, err)
	require.Equal(t, "Living Room CXNv2", desc.FriendlyName)
}

func TestResolveStreamerFailsOnUnreachableURL(t *testing.T) {
	opts := Options{ProbeTimeout: 100 * time.Millisecond}
	_, err := ResolveStreamer(context.Background(), "http://127.0.0.1:1/description.xml", opts)
	require.Error(t, err)
}

// TestResolveStreamerReturnsDeviceErrorWhenNoneFound exercises spec.md
// §8 scenario 1: an empty specifier with no SSDP responder on the
// network must fail with DeviceError("Could not find streamer on the
// network"), not a generic not-found.
func TestResolveStreamerReturnsDeviceErrorWhenNoneFound(t *testing.T) {
	opts := Options{
		SSDPPasses:   1,
		PassInterval: 10 * time.Millisecond,
		SSDPTimeout:  50 * time.Millisecond,
		ProbeTimeout: 50 * time.Millisecond,
	}
	_, err := ResolveStreamer(context.Background(), "", opts)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *apperrors.AppError, got %T", err)
	require.Equal(t, apperrors.ErrorCodeDeviceError, appErr.Code)
	require.Equal(t, "Could not find streamer on the network", appErr.Message)
}

func TestResolveAmplifierEmptySpecifierMeansNone(t *testing.T) {
	target, err := ResolveAmplifier(context.Background(), "", Options{ProbeTimeout: time.Second})
	require.NoError(t, err)
	require.Nil(t, target)
}

func TestResolveAmplifierFallsBackToHegelTCP(t *testing.T) {
	opts := Options{ProbeTimeout: 50 * time.Millisecond}
	target, err := ResolveAmplifier(context.Background(), "192.168.1.77", opts)
	require.NoError(t, err)
	require.NotNil(t, target)
	require.Equal(t, "192.168.1.77:50001", target.HegelAddr)
	require.Nil(t, target.Device)
}

func TestResolveAmplifierHonorsExplicitPort(t *testing.T) {
	opts := Options{ProbeTimeout: 50 * time.Millisecond}
	target, err := ResolveAmplifier(context.Background(), "192.168.1.77:50002", opts)
	require.NoError(t, err)
	require.Equal(t, "192.168.1.77:50002", target.HegelAddr)
}

func TestLooksLikeURL(t *testing.T) {
	require.True(t, looksLikeURL("http://192.168.1.50/description.xml"))
	require.False(t, looksLikeURL("192.168.1.50"))
	require.False(t, looksLikeURL("Living Room"))
}
