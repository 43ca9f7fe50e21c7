package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNotifyBodyAVTransport(t *testing.T) {
	body := []byte(`<propertyset xmlns="urn:schemas-upnp-org:event-1-0">
<property><LastChange>&lt;Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/"&gt;&lt;InstanceID val="0"&gt;&lt;TransportState val="PAUSED_PLAYBACK"/&gt;&lt;CurrentTrackURI val="http://example/track.flac"/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange></property>
</propertyset>`)

	event, err := ParseNotifyBody(body, ServiceAVTransport)
	require.NoError(t, err)
	require.Equal(t, "PAUSED_PLAYBACK", event.Properties["TransportState"])
	require.Equal(t, "http://example/track.flac", event.Properties["CurrentTrackURI"])
}

func TestParseNotifyBodyRenderingControl(t *testing.T) {
	body := []byte(`<propertyset xmlns="urn:schemas-upnp-org:event-1-0">
<property><LastChange>&lt;Event xmlns="urn:schemas-upnp-org:metadata-1-0/RCS/"&gt;&lt;InstanceID val="0"&gt;&lt;Volume channel="Master" val="42"/&gt;&lt;Mute channel="Master" val="1"/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange></property>
</propertyset>`)

	event, err := ParseNotifyBody(body, ServiceRenderingControl)
	require.NoError(t, err)
	require.Equal(t, "42", event.Properties["Volume"])
	require.Equal(t, "1", event.Properties["Mute"])
}

func TestParseNotifyBodyContentDirectory(t *testing.T) {
	body := []byte(`<propertyset xmlns="urn:schemas-upnp-org:event-1-0">
<property><SystemUpdateID>17</SystemUpdateID></property>
</propertyset>`)

	event, err := ParseNotifyBody(body, ServiceContentDirectory)
	require.NoError(t, err)
	require.Equal(t, "17", event.Properties["SystemUpdateID"])
}

func TestParseTimeoutHandlesInfiniteAndSeconds(t *testing.T) {
	require.Equal(t, 1800, ParseTimeout("Second-1800"))
	require.Equal(t, 86400, ParseTimeout("infinite"))
	require.Equal(t, 1800, ParseTimeout("garbage"))
}

func TestInferServiceTypeFromPath(t *testing.T) {
	require.Equal(t, ServiceAVTransport, InferServiceTypeFromPath("/upnp/notify/avtransport"))
	require.Equal(t, ServiceRenderingControl, InferServiceTypeFromPath("/upnp/notify/renderingcontrol"))
	require.Equal(t, ServiceContentDirectory, InferServiceTypeFromPath("/upnp/notify/contentdirectory"))
}
