package events

import (
	"encoding/xml"
	"html"
	"strconv"
	"strings"
)

type propertyset struct {
	XMLName    xml.Name   `xml:"propertyset"`
	Properties []property `xml:"property"`
}

// property covers every property element NOTIFY can carry across the three
// services this package subscribes to; exactly one is populated per event.
type property struct {
	LastChange     string `xml:"LastChange"`
	SystemUpdateID string `xml:"SystemUpdateID"`
}

type avTransportEvent struct {
	XMLName    xml.Name            `xml:"Event"`
	InstanceID avTransportInstance `xml:"InstanceID"`
}

type avTransportInstance struct {
	TransportState         attrVal `xml:"TransportState"`
	TransportStatus        attrVal `xml:"TransportStatus"`
	CurrentTrackURI        attrVal `xml:"CurrentTrackURI"`
	CurrentTrackDuration   attrVal `xml:"CurrentTrackDuration"`
	CurrentTrackMetaData   attrVal `xml:"CurrentTrackMetaData"`
	AVTransportURI         attrVal `xml:"AVTransportURI"`
	AVTransportURIMetaData attrVal `xml:"AVTransportURIMetaData"`
	RelTime                attrVal `xml:"RelativeTimePosition"`
}

type attrVal struct {
	Val string `xml:"val,attr"`
}

type renderingControlEvent struct {
	XMLName    xml.Name                 `xml:"Event"`
	InstanceID renderingControlInstance `xml:"InstanceID"`
}

type renderingControlInstance struct {
	Volume channelAttrVal `xml:"Volume"`
	Mute   channelAttrVal `xml:"Mute"`
}

type channelAttrVal struct {
	Channel string `xml:"channel,attr"`
	Val     string `xml:"val,attr"`
}

// ParseNotifyBody parses a UPnP NOTIFY event body. The outer propertyset
// wraps an XML-escaped LastChange (or, for ContentDirectory, a bare
// SystemUpdateID) that must be unescaped before its inner XML is parsed.
func ParseNotifyBody(body []byte, serviceType ServiceType) (*NotifyEvent, error) {
	event := &NotifyEvent{
		ServiceType: serviceType,
		Properties:  make(map[string]string),
		RawBody:     body,
	}

	var ps propertyset
	if err := xml.Unmarshal(body, &ps); err != nil {
		return nil, err
	}

	for _, prop := range ps.Properties {
		if prop.SystemUpdateID != "" {
			event.Properties["SystemUpdateID"] = strings.TrimSpace(prop.SystemUpdateID)
		}
		if prop.LastChange == "" {
			continue
		}
		unescaped := html.UnescapeString(prop.LastChange)
		switch serviceType {
		case ServiceAVTransport:
			if avEvent, err := parseAVTransportLastChange(unescaped); err == nil {
				mergeAVTransportProperties(event.Properties, avEvent)
			}
		case ServiceRenderingControl:
			rcEvent, err := parseRenderingControlLastChange(unescaped)
			if err == nil {
				mergeRenderingControlProperties(event.Properties, rcEvent)
			}
		}
	}

	return event, nil
}

func parseAVTransportLastChange(xmlContent string) (*AVTransportEvent, error) {
	var evt avTransportEvent
	if err := xml.Unmarshal([]byte(xmlContent), &evt); err != nil {
		return nil, err
	}
	return &AVTransportEvent{
		TransportState:       evt.InstanceID.TransportState.Val,
		TransportStatus:      evt.InstanceID.TransportStatus.Val,
		CurrentTrackURI:      evt.InstanceID.CurrentTrackURI.Val,
		CurrentTrackMetaData: evt.InstanceID.CurrentTrackMetaData.Val,
		TrackDuration:        evt.InstanceID.CurrentTrackDuration.Val,
		RelTime:              evt.InstanceID.RelTime.Val,
		AVTransportURI:       evt.InstanceID.AVTransportURI.Val,
		AVTransportURIMeta:   evt.InstanceID.AVTransportURIMetaData.Val,
	}, nil
}

func parseRenderingControlLastChange(xmlContent string) (*RenderingControlEvent, error) {
	var evt renderingControlEvent
	if err := xml.Unmarshal([]byte(xmlContent), &evt); err != nil {
		return nil, err
	}
	event := &RenderingControlEvent{}
	if evt.InstanceID.Volume.Channel == "Master" || evt.InstanceID.Volume.Channel == "" {
		if vol, err := strconv.Atoi(evt.InstanceID.Volume.Val); err == nil {
			event.Volume = vol
		}
	}
	if evt.InstanceID.Mute.Channel == "Master" || evt.InstanceID.Mute.Channel == "" {
		event.Muted = evt.InstanceID.Mute.Val == "1"
	}
	return event, nil
}

func mergeAVTransportProperties(props map[string]string, evt *AVTransportEvent) {
	if evt.TransportState != "" {
		props["TransportState"] = evt.TransportState
	}
	if evt.TransportStatus != "" {
		props["TransportStatus"] = evt.TransportStatus
	}
	if evt.CurrentTrackURI != "" {
		props["CurrentTrackURI"] = evt.CurrentTrackURI
	}
	if evt.CurrentTrackMetaData != "" {
		props["CurrentTrackMetaData"] = evt.CurrentTrackMetaData
	}
	if evt.TrackDuration != "" {
		props["TrackDuration"] = evt.TrackDuration
	}
	if evt.RelTime != "" {
		props["RelTime"] = evt.RelTime
	}
	if evt.AVTransportURI != "" {
		props["AVTransportURI"] = evt.AVTransportURI
	}
	if evt.AVTransportURIMeta != "" {
		props["AVTransportURIMetaData"] = evt.AVTransportURIMeta
	}
}

func mergeRenderingControlProperties(props map[string]string, evt *RenderingControlEvent) {
	props["Volume"] = strconv.Itoa(evt.Volume)
	if evt.Muted {
		props["Mute"] = "1"
	} else {
		props["Mute"] = "0"
	}
}

// InferServiceTypeFromPath infers the service type from a callback path
// built by buildCallbackURL.
func InferServiceTypeFromPath(path string) ServiceType {
	switch {
	case strings.Contains(path, "avtransport"):
		return ServiceAVTransport
	case strings.Contains(path, "renderingcontrol"):
		return ServiceRenderingControl
	case strings.Contains(path, "contentdirectory"):
		return ServiceContentDirectory
	default:
		return ServiceAVTransport
	}
}
