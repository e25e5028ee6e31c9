package models

// Repository describes where packages come from. Exactly one of the three
// locators is authoritative; when a descriptor mistakenly carries more than
// one they are honored in baseurl > metalink > mirrorlist order.
type Repository struct {
	ID         string   `yaml:"id"`
	Baseurl    []string `yaml:"baseurl,omitempty"`
	Metalink   string   `yaml:"metalink,omitempty"`
	Mirrorlist string   `yaml:"mirrorlist,omitempty"`
}

// LocatorKind identifies which repository locator field is in use
type LocatorKind int

const (
	LocatorNone LocatorKind = iota
	LocatorBaseurl
	LocatorMetalink
	LocatorMirrorlist
)

// Locator returns the authoritative locator for this descriptor.
func (r Repository) Locator() LocatorKind {
	switch {
	case len(r.Baseurl) > 0:
		return LocatorBaseurl
	case r.Metalink != "":
		return LocatorMetalink
	case r.Mirrorlist != "":
		return LocatorMirrorlist
	default:
		return LocatorNone
	}
}
