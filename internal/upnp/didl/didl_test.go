package didl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleBrowseResponse = `<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">
<container id="album-1" parentID="0" restricted="1">
<dc:title>Kind of Blue</dc:title>
<dc:creator>Miles Davis</dc:creator>
<upnp:artist>Miles Davis</upnp:artist>
<upnp:genre>Jazz</upnp:genre>
<upnp:albumArtURI>http://server/art/album-1.jpg</upnp:albumArtURI>
<upnp:class>object.container.album.musicAlbum</upnp:class>
</container>
<item id="track-1-album-1" parentID="album-1" restricted="1">
<dc:title>So What</dc:title>
<upnp:artist role="AlbumArtist">Miles Davis</upnp:artist>
<upnp:artist>Miles Davis Quintet</upnp:artist>
<upnp:album>Kind of Blue</upnp:album>
<upnp:class>object.item.audioItem.musicTrack</upnp:class>
<res protocolInfo="http-get:*:audio/flac:*">http://server/stream/track-1.flac</res>
</item>
</DIDL-Lite>`

func TestParseContainersAndItems(t *testing.T) {
	lite, err := Parse([]byte(sampleBrowseResponse))
	require.NoError(t, err)
	require.Len(t, lite.Containers, 1)
	require.Len(t, lite.Items, 1)

	container := lite.Containers[0]
	require.Equal(t, "Kind of Blue", container.Title)
	require.True(t, container.IsAlbumContainer())
	require.False(t, container.IsArtistContainer())

	item := lite.Items[0]
	require.True(t, item.IsMusicTrack())
}

func TestItemPrimaryArtistPrefersUnroledEntry(t *testing.T) {
	item := Item{
		Artists: []RoledText{
			{Role: "AlbumArtist", Text: "Miles Davis"},
			{Role: "", Text: "Miles Davis Quintet"},
		},
	}
	require.Equal(t, "Miles Davis Quintet", item.PrimaryArtist())
}

func TestItemPrimaryArtistFallsBackToFirstWhenAllRoled(t *testing.T) {
	item := Item{
		Artists: []RoledText{
			{Role: "Composer", Text: "Someone"},
		},
	}
	require.Equal(t, "Someone", item.PrimaryArtist())
}

func TestItemPrimaryArtistUnknownWhenAbsent(t *testing.T) {
	item := Item{}
	require.Equal(t, "<Unknown>", item.PrimaryArtist())
}

func TestItemAudioResourcePrefersLosslessSuffix(t *testing.T) {
	item := Item{
		Resources: []Resource{
			{URI: "http://server/stream/track.mp3"},
			{URI: "http://server/stream/track.flac"},
		},
	}
	res, ok := item.AudioResource()
	require.True(t, ok)
	require.Equal(t, "http://server/stream/track.flac", res.URI)
}

func TestEncodeTrackItemRoundTrips(t *testing.T) {
	xmlFragment := EncodeTrackItem("track-1", "album-1", "So What & More", "Miles Davis", "Kind of Blue", "", "http://server/stream/track-1.flac", "http-get:*:audio/flac:*")

	lite, err := Parse([]byte(xmlFragment))
	require.NoError(t, err)
	require.Len(t, lite.Items, 1)
	require.Equal(t, "So What & More", lite.Items[0].Title)
	require.Equal(t, "http://server/stream/track-1.flac", lite.Items[0].Resources[0].URI)
}
