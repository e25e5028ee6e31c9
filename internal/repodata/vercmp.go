package repodata

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ralt/pkgmanifest/internal/dnfapi"
)

// compareEVR orders two packages by epoch, version, release.
func compareEVR(a, b dnfapi.PackageMeta) int {
	if c := compareEpoch(a.Epoch, b.Epoch); c != 0 {
		return c
	}
	if c := rpmVerCompare(a.Version, b.Version); c != 0 {
		return c
	}
	return rpmVerCompare(a.Release, b.Release)
}

func compareEpoch(a, b string) int {
	ae, _ := strconv.Atoi(a)
	be, _ := strconv.Atoi(b)
	switch {
	case ae < be:
		return -1
	case ae > be:
		return 1
	default:
		return 0
	}
}

// rpmVerCompare compares version strings segment-wise the way rpm does:
// alternating runs of digits and letters, numeric runs compared as numbers,
// a longer string wins a tie.
func rpmVerCompare(a, b string) int {
	for a != "" || b != "" {
		a = strings.TrimLeftFunc(a, isSeparator)
		b = strings.TrimLeftFunc(b, isSeparator)
		if a == "" || b == "" {
			break
		}

		aSeg, aRest, aNum := nextSegment(a)
		bSeg, bRest, bNum := nextSegment(b)

		// A numeric segment always sorts above an alphabetic one.
		if aNum != bNum {
			if aNum {
				return 1
			}
			return -1
		}

		if aNum {
			aVal := strings.TrimLeft(aSeg, "0")
			bVal := strings.TrimLeft(bSeg, "0")
			if len(aVal) != len(bVal) {
				if len(aVal) > len(bVal) {
					return 1
				}
				return -1
			}
			if c := strings.Compare(aVal, bVal); c != 0 {
				return c
			}
		} else if c := strings.Compare(aSeg, bSeg); c != 0 {
			return c
		}

		a, b = aRest, bRest
	}

	switch {
	case a == "" && b == "":
		return 0
	case a != "":
		return 1
	default:
		return -1
	}
}

func isSeparator(r rune) bool {
	return !unicode.IsDigit(r) && !unicode.IsLetter(r)
}

func nextSegment(s string) (seg, rest string, numeric bool) {
	numeric = unicode.IsDigit(rune(s[0]))
	i := 0
	for i < len(s) {
		r := rune(s[i])
		if numeric && !unicode.IsDigit(r) {
			break
		}
		if !numeric && !unicode.IsLetter(r) {
			break
		}
		i++
	}
	return s[:i], s[i:], numeric
}
