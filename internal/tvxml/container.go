// Package tvxml encodes the TiVo container/item XML surface and decodes the
// paging query parameters described in spec.md §4.3, following the teacher's
// small self-contained encoding/xml wrapper style
// (ManuGH-xg2g/internal/api/handlers_xmltv.go).
package tvxml

import (
	"encoding/xml"
)

// ItemDetails is the per-item metadata block. Only the fields the protocol
// engine itself needs to populate are modeled; richer metadata (duration,
// codecs, etc.) comes from the out-of-scope file-format extractor and is
// passed through opaquely by the caller via ExtraDetails.
type ItemDetails struct {
	XMLName      xml.Name `xml:"Details"`
	Title        string   `xml:"Title"`
	ContentType  string   `xml:"ContentType"`
	SourceSize   int64    `xml:"SourceSize,omitempty"`
	IsDir        bool     `xml:"-"`
	ExtraDetails []KV     `xml:",omitempty"`
}

// KV is a flattened extra detail element, name used as the XML tag.
type KV struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// Link is a TiVo content/customIcon link.
type Link struct {
	XMLName     xml.Name `xml:"Link"`
	Content     string   `xml:"Content"`
	Url         string   `xml:"Url"`
	ContentType string   `xml:"ContentType"`
	AcceptsParams bool   `xml:"AcceptsParams,omitempty"`
}

// Item is one row in a container listing.
type Item struct {
	XMLName xml.Name `xml:"Item"`
	Details ItemDetails
	Links   []Link `xml:"Links>Link,omitempty"`
}

// Marshal renders a single Item as its own XML document, answering
// QueryItem (spec.md §4.3).
func (it Item) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(it, "", "")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Container is the root-container or share-listing XML document.
type Container struct {
	XMLName    xml.Name `xml:"TiVoContainer"`
	ItemStart  int      `xml:"Details>ItemStart"`
	ItemCount  int      `xml:"Details>ItemCount"`
	TotalItems int      `xml:"Details>TotalItems"`
	Title      string   `xml:"Details>Title,omitempty"`
	Items      []Item   `xml:"Item"`
}

// Marshal renders c as an XML document with the declaration pyTivo's
// templates always emit.
func (c Container) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(c, "", "")
	if err != nil {
		return nil, err
	}
	header := []byte(xml.Header)
	return append(header, body...), nil
}

// ServerInfo answers QueryServer (spec.md §4.3).
type ServerInfo struct {
	XMLName         xml.Name `xml:"TiVoServer"`
	Version         string   `xml:"Version"`
	InternalName    string   `xml:"InternalName"`
	InternalVersion string   `xml:"InternalVersion"`
	Organization    string   `xml:"Organization"`
}

// DefaultServerInfo mirrors the fixed identity string the original pyTivo
// server always returns for QueryServer.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Version:         "1.6.26",
		InternalName:    "pyTivoGo",
		InternalVersion: "pyTivoGo Bridge",
		Organization:    "pytivogo",
	}
}

func (s ServerInfo) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(s, "", "")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Format is one entry in a QueryFormats response.
type Format struct {
	XMLName     xml.Name `xml:"Format"`
	ContentType string   `xml:"ContentType"`
}

// FormatsDoc answers QueryFormats.
type FormatsDoc struct {
	XMLName xml.Name `xml:"TiVoFormats"`
	Formats []Format `xml:"Format"`
}

// MimeVideoMPEG and MimeVideoMPEGTS are the two container formats spec §4.3
// QueryFormats may advertise.
const (
	MimeVideoMPEG   = "video/x-tivo-mpeg"
	MimeVideoMPEGTS = "video/x-tivo-mpeg-ts"
)

// BuildQueryFormats returns the formats TiVo TSN tsn may request, per
// spec.md §4.3 and end-to-end scenario 3: PS is always offered; TS is
// offered additionally when the TSN is TS-capable.
func BuildQueryFormats(tsCapable bool) FormatsDoc {
	doc := FormatsDoc{Formats: []Format{{ContentType: MimeVideoMPEG}}}
	if tsCapable {
		doc.Formats = append(doc.Formats, Format{ContentType: MimeVideoMPEGTS})
	}
	return doc
}

func (d FormatsDoc) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
