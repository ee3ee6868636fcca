package kmlstyle

import (
	"encoding/xml"
	"strings"
)

// node is a generic XML element, enough to walk arbitrary KML documents.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

// find returns the first descendant called name in document order.
func (n *node) find(name string) *node {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == name {
			return c
		}
		if d := c.find(name); d != nil {
			return d
		}
	}
	return nil
}

// findAll returns every descendant called name in document order.
func (n *node) findAll(name string) []*node {
	var out []*node
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = append(out, c.findAll(name)...)
	}
	return out
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// innerText concatenates the character data of n and its descendants.
func (n *node) innerText() string {
	var b strings.Builder
	b.WriteString(n.Text)
	for i := range n.Nodes {
		b.WriteString(n.Nodes[i].innerText())
	}
	return b.String()
}

type kmlDoc struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document document `xml:"Document"`
}

type document struct {
	Styles     []style        `xml:"Style"`
	Placemarks []outPlacemark `xml:"Placemark"`
}

type style struct {
	ID        string    `xml:"id,attr"`
	IconStyle iconStyle `xml:"IconStyle"`
}

type iconStyle struct {
	Color string  `xml:"color"`
	Scale float64 `xml:"scale"`
	Icon  icon    `xml:"Icon"`
}

type icon struct {
	Href string `xml:"href"`
}

type outPlacemark struct {
	Name         string        `xml:"name"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	ExtendedData *extendedData `xml:"ExtendedData,omitempty"`
	Point        point         `xml:"Point"`
}

type extendedData struct {
	Data []data `xml:"Data"`
}

type data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type point struct {
	Coordinates string `xml:"coordinates"`
}
