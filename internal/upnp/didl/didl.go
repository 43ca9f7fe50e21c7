// Package didl decodes DIDL-Lite XML, the UPnP ContentDirectory format for
// describing browsable media objects (containers and items), into the
// engine's catalog types.
package didl

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Lite is a single Browse or GetMetadata response: a flat list of
// containers and items, in whatever order the media server returned them.
type Lite struct {
	XMLName    xml.Name    `xml:"DIDL-Lite"`
	Containers []Container `xml:"container"`
	Items      []Item      `xml:"item"`
}

// Container is a DIDL-Lite <container> element: an album, artist or
// browsable folder.
type Container struct {
	ID           string `xml:"id,attr"`
	ParentID     string `xml:"parentID,attr"`
	Title        string `xml:"title"`
	Creator      string `xml:"creator"`
	Date         string `xml:"date"`
	Artist       string `xml:"artist"`
	Genre        string `xml:"genre"`
	AlbumArtURI  string `xml:"albumArtURI"`
	Class        string `xml:"class"`
}

// Item is a DIDL-Lite <item> element: a playable track.
type Item struct {
	ID          string      `xml:"id,attr"`
	ParentID    string      `xml:"parentID,attr"`
	Title       string      `xml:"title"`
	Artists     []RoledText `xml:"artist"`
	Album       string      `xml:"album"`
	Genre       string      `xml:"genre"`
	AlbumArtURI string      `xml:"albumArtURI"`
	Class       string      `xml:"class"`
	Duration    string      `xml:"originalTrackNumber"`
	Resources   []Resource  `xml:"res"`
}

// RoledText is a DIDL-Lite element carrying an optional UPnP "role"
// attribute, used for <upnp:artist role="AlbumArtist">.
type RoledText struct {
	Role string `xml:"role,attr"`
	Text string `xml:",chardata"`
}

// Resource is a DIDL-Lite <res> element describing a playable file URI and
// its protocol/format.
type Resource struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	URI          string `xml:",chardata"`
}

// Parse decodes a DIDL-Lite XML document.
func Parse(data []byte) (*Lite, error) {
	var lite Lite
	if err := xml.Unmarshal(data, &lite); err != nil {
		return nil, fmt.Errorf("parse DIDL-Lite: %w", err)
	}
	return &lite, nil
}

// PrimaryArtist picks a single artist name from a track's artist list,
// following the source adapters' convention: prefer the entry with no role
// attribute (the default credited artist) over a role like "AlbumArtist" or
// "Composer"; fall back to the first entry, or "<Unknown>" if there are none.
func (i Item) PrimaryArtist() string {
	for _, a := range i.Artists {
		if a.Role == "" {
			return a.Text
		}
	}
	if len(i.Artists) > 0 {
		return i.Artists[0].Text
	}
	return "<Unknown>"
}

// AudioResource returns the first resource whose URI looks like a lossless
// audio file, the convention the media-server adapter uses to prefer a FLAC
// or WAV stream over a transcoded one when several <res> entries are present.
func (i Item) AudioResource() (Resource, bool) {
	for _, res := range i.Resources {
		if hasAudioSuffix(res.URI) {
			return res, true
		}
	}
	if len(i.Resources) > 0 {
		return i.Resources[0], true
	}
	return Resource{}, false
}

func hasAudioSuffix(uri string) bool {
	for _, suffix := range []string{".flac", ".wav"} {
		if len(uri) >= len(suffix) && uri[len(uri)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

// IsAlbumContainer reports whether a container's UPnP class is a music
// album, as opposed to an artist folder or a plain browsable directory.
func (c Container) IsAlbumContainer() bool {
	return startsWith(c.Class, "object.container.album.musicAlbum")
}

// IsArtistContainer reports whether a container's UPnP class is an artist.
func (c Container) IsArtistContainer() bool {
	return startsWith(c.Class, "object.container.person.musicArtist")
}

// IsMusicTrack reports whether an item's UPnP class is a playable track.
func (i Item) IsMusicTrack() bool {
	return i.Class == "object.item.audioItem.musicTrack"
}

func startsWith(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// EncodeTrackItem renders a single DIDL-Lite <item> document for a track,
// the form the streamer adapters embed into a queue-modification request
// (percent-encoded by the caller) so the streamer can queue a track or
// album the media server resolved without a prior Browse round-trip.
func EncodeTrackItem(id, parentID, title, artist, album, albumArtURI, resourceURI, protocolInfo string) string {
	return fmt.Sprintf(
		`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">`+
			`<item id="%s" parentID="%s" restricted="1">`+
			`<dc:title>%s</dc:title>`+
			`<upnp:artist>%s</upnp:artist>`+
			`<upnp:album>%s</upnp:album>`+
			`<upnp:albumArtURI>%s</upnp:albumArtURI>`+
			`<upnp:class>object.item.audioItem.musicTrack</upnp:class>`+
			`<res protocolInfo="%s">%s</res>`+
			`</item></DIDL-Lite>`,
		escapeXMLText(id), escapeXMLText(parentID), escapeXMLText(title), escapeXMLText(artist),
		escapeXMLText(album), escapeXMLText(albumArtURI), escapeXMLText(protocolInfo), escapeXMLText(resourceURI),
	)
}

func escapeXMLText(s string) string {
	var buf strings.Builder
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
