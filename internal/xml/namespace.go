package xml

import "github.com/beevik/etree"

// Namespace definitions for xCal
const (
	// ICalendar is the xCal (RFC 6321) namespace
	ICalendar = "urn:ietf:params:xml:ns:icalendar-2.0"
	// Schedcore carries the X- properties that have no standard element
	Schedcore = "urn:schedcore:params:xml:ns:x-properties"
)

// AddNamespaces declares the xCal default namespace and the extension prefix
// on the document root
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", ICalendar)
	root.CreateAttr("xmlns:X", Schedcore)
}
