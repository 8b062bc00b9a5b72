// Package winver maps raw Windows build numbers to marketing version tags.
package winver

import (
	"strings"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// Status represents the support state of a resolved build.
type Status string

const (
	// StatusSupported indicates a build with a known marketing version.
	StatusSupported Status = "supported"

	// StatusUnsupported indicates a build from a deprecated release family.
	StatusUnsupported Status = "unsupported"

	// StatusUnknown indicates a build absent from the lookup table.
	StatusUnknown Status = "unknown"
)

// Result represents the outcome of a build number lookup.
type Result struct {
	Family    api.OSFamily
	Marketing string
	Status    Status

	// Build records the triggering build number for unsupported/unknown lookups.
	Build string
}

type entry struct {
	family    api.OSFamily
	marketing string

	// Some builds are shared between a client and a server release.
	serverFamily    api.OSFamily
	serverMarketing string
}

// Builds 19041 through 19045 share the same servicing base and receive identical
// update content, but ISO media for those sub-releases reports inconsistent build
// numbers. The whole range is deliberately collapsed to the newest marketing tag.
var buildTable = map[string]entry{
	"10240": {family: api.OSFamilyWindows10, marketing: "1507"},
	"10586": {family: api.OSFamilyWindows10, marketing: "1511"},
	"14393": {family: api.OSFamilyWindows10, marketing: "1607", serverFamily: api.OSFamilyServer2016, serverMarketing: "1607"},
	"15063": {family: api.OSFamilyWindows10, marketing: "1703"},
	"16299": {family: api.OSFamilyWindows10, marketing: "1709"},
	"17134": {family: api.OSFamilyWindows10, marketing: "1803"},
	"17763": {family: api.OSFamilyWindows10, marketing: "1809", serverFamily: api.OSFamilyServer2019, serverMarketing: "1809"},
	"18362": {family: api.OSFamilyWindows10, marketing: "1903"},
	"18363": {family: api.OSFamilyWindows10, marketing: "1909"},
	"19041": {family: api.OSFamilyWindows10, marketing: "22H2"},
	"19042": {family: api.OSFamilyWindows10, marketing: "22H2"},
	"19043": {family: api.OSFamilyWindows10, marketing: "22H2"},
	"19044": {family: api.OSFamilyWindows10, marketing: "22H2"},
	"19045": {family: api.OSFamilyWindows10, marketing: "22H2"},
	"20348": {family: api.OSFamilyServer2022, marketing: "21H2", serverFamily: api.OSFamilyServer2022, serverMarketing: "21H2"},
	"22000": {family: api.OSFamilyWindows11, marketing: "21H2"},
	"22621": {family: api.OSFamilyWindows11, marketing: "22H2"},
	"22631": {family: api.OSFamilyWindows11, marketing: "23H2"},
	"26100": {family: api.OSFamilyWindows11, marketing: "24H2"},
}

// Builds from release families that can no longer be serviced offline.
var deprecatedBuilds = map[string]struct{}{
	"7600": {},
	"7601": {},
	"9200": {},
	"9600": {},
}

// Resolve maps a raw build string to its release family and marketing version.
func Resolve(buildString string) Result {
	return ResolveImage(buildString, "")
}

// ResolveImage maps a raw build string to its release family and marketing
// version, using the image name to disambiguate builds shared between client
// and server releases.
func ResolveImage(buildString string, imageName string) Result {
	build := baseBuild(buildString)

	_, ok := deprecatedBuilds[build]
	if ok {
		return Result{Status: StatusUnsupported, Build: build}
	}

	e, ok := buildTable[build]
	if !ok {
		return Result{Status: StatusUnknown, Build: build}
	}

	if e.serverFamily != api.OSFamilyUndefined && strings.Contains(imageName, "Server") {
		return Result{Family: e.serverFamily, Marketing: e.serverMarketing, Status: StatusSupported, Build: build}
	}

	return Result{Family: e.family, Marketing: e.marketing, Status: StatusSupported, Build: build}
}

// baseBuild extracts the base build number from a full version string such as "10.0.19045.2965".
func baseBuild(buildString string) string {
	fields := strings.Split(strings.TrimSpace(buildString), ".")

	// Full version strings lead with the 10.0 kernel version.
	if len(fields) >= 3 && fields[0] == "10" && fields[1] == "0" {
		return fields[2]
	}

	// Older families use 6.x kernel versions.
	if len(fields) >= 3 && fields[0] == "6" {
		return fields[2]
	}

	return fields[0]
}
