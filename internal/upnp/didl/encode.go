package didl

import (
	"encoding/xml"
	"strings"
)

// EncodeTrackItem builds the DIDL-Lite fragment a streamer expects as the
// CurrentURIMetaData / AVTransportURIMetaData argument when queueing a
// track by URI, so the streamer's display shows title/artist/album without
// vibin having to separately push metadata afterwards.
func EncodeTrackItem(id, parentID, title, artist, album, artURI, resourceURI, protocolInfo string) string {
	var b strings.Builder
	b.WriteString(`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" `)
	b.WriteString(`xmlns:dc="http://purl.org/dc/elements/1.1/" `)
	b.WriteString(`xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">`)
	b.WriteString(`<item id="`)
	b.WriteString(escape(id))
	b.WriteString(`" parentID="`)
	b.WriteString(escape(parentID))
	b.WriteString(`" restricted="1">`)
	b.WriteString("<dc:title>")
	b.WriteString(escape(title))
	b.WriteString("</dc:title>")
	b.WriteString("<upnp:artist>")
	b.WriteString(escape(artist))
	b.WriteString("</upnp:artist>")
	b.WriteString("<upnp:album>")
	b.WriteString(escape(album))
	b.WriteString("</upnp:album>")
	if artURI != "" {
		b.WriteString("<upnp:albumArtURI>")
		b.WriteString(escape(artURI))
		b.WriteString("</upnp:albumArtURI>")
	}
	b.WriteString("<upnp:class>object.item.audioItem.musicTrack</upnp:class>")
	b.WriteString(`<res protocolInfo="`)
	b.WriteString(escape(protocolInfo))
	b.WriteString(`">`)
	b.WriteString(escape(resourceURI))
	b.WriteString("</res>")
	b.WriteString("</item>")
	b.WriteString("</DIDL-Lite>")
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
