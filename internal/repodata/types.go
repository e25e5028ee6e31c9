// Package repodata reads RPM repository metadata (repomd.xml and the
// primary metadata it points at) and backs the resolver and download
// boundaries with it.
package repodata

// repomd.xml
type repomd struct {
	Revision string       `xml:"revision"`
	Data     []repomdData `xml:"data"`
}

type repomdData struct {
	Type     string         `xml:"type,attr"`
	Checksum repomdChecksum `xml:"checksum"`
	Location xmlLocation    `xml:"location"`
	Size     int64          `xml:"size"`
	OpenSize int64          `xml:"open-size"`
}

type repomdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlLocation struct {
	Href string `xml:"href,attr"`
}

// primary.xml
type primaryMetadata struct {
	PackagesCount int          `xml:"packages,attr"`
	Packages      []primaryPkg `xml:"package"`
}

type primaryPkg struct {
	Type     string          `xml:"type,attr"`
	Name     string          `xml:"name"`
	Arch     string          `xml:"arch"`
	Version  primaryVersion  `xml:"version"`
	Checksum primaryChecksum `xml:"checksum"`
	Size     primarySize     `xml:"size"`
	Location xmlLocation     `xml:"location"`
	Format   primaryFormat   `xml:"format"`
}

type primaryVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type primaryChecksum struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type primarySize struct {
	Package   int64 `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type primaryFormat struct {
	SourceRPM string `xml:"sourcerpm"`
}

// metalink XML, as served by mirror managers
type metalink struct {
	Files metalinkFiles `xml:"files"`
}

type metalinkFiles struct {
	Files []metalinkFile `xml:"file"`
}

type metalinkFile struct {
	Name      string            `xml:"name,attr"`
	Resources metalinkResources `xml:"resources"`
}

type metalinkResources struct {
	URLs []metalinkURL `xml:"url"`
}

type metalinkURL struct {
	Protocol   string `xml:"protocol,attr"`
	Preference int    `xml:"preference,attr"`
	URL        string `xml:",chardata"`
}
