package winver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/winver"
)

func TestResolveSupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		build     string
		family    api.OSFamily
		marketing string
	}{
		{"10240", api.OSFamilyWindows10, "1507"},
		{"10586", api.OSFamilyWindows10, "1511"},
		{"14393", api.OSFamilyWindows10, "1607"},
		{"15063", api.OSFamilyWindows10, "1703"},
		{"16299", api.OSFamilyWindows10, "1709"},
		{"17134", api.OSFamilyWindows10, "1803"},
		{"17763", api.OSFamilyWindows10, "1809"},
		{"18362", api.OSFamilyWindows10, "1903"},
		{"18363", api.OSFamilyWindows10, "1909"},
		{"20348", api.OSFamilyServer2022, "21H2"},
		{"22000", api.OSFamilyWindows11, "21H2"},
		{"22621", api.OSFamilyWindows11, "22H2"},
		{"22631", api.OSFamilyWindows11, "23H2"},
		{"26100", api.OSFamilyWindows11, "24H2"},
	}

	for _, tc := range tests {
		res := winver.Resolve(tc.build)

		require.Equal(t, winver.StatusSupported, res.Status, tc.build)
		require.Equal(t, tc.family, res.Family, tc.build)
		require.Equal(t, tc.marketing, res.Marketing, tc.build)
	}
}

// The 19041 servicing base is shared by five sub-releases whose ISO media report
// inconsistent build numbers; all of them resolve to the same marketing tag.
func TestResolveCollapsedRange(t *testing.T) {
	t.Parallel()

	for _, build := range []string{"19041", "19042", "19043", "19044", "19045"} {
		res := winver.Resolve(build)

		require.Equal(t, winver.StatusSupported, res.Status, build)
		require.Equal(t, api.OSFamilyWindows10, res.Family, build)
		require.Equal(t, "22H2", res.Marketing, build)
	}
}

func TestResolveDeprecated(t *testing.T) {
	t.Parallel()

	for _, build := range []string{"7600", "7601", "9200", "9600"} {
		res := winver.Resolve(build)

		require.Equal(t, winver.StatusUnsupported, res.Status, build)
		require.Equal(t, build, res.Build)
	}
}

func TestResolveUnknown(t *testing.T) {
	t.Parallel()

	for _, build := range []string{"12345", "0", "banana"} {
		res := winver.Resolve(build)

		require.Equal(t, winver.StatusUnknown, res.Status, build)
	}
}

func TestResolveFullVersionString(t *testing.T) {
	t.Parallel()

	res := winver.Resolve("10.0.19045.2965")

	require.Equal(t, winver.StatusSupported, res.Status)
	require.Equal(t, "19045", res.Build)
	require.Equal(t, "22H2", res.Marketing)

	res = winver.Resolve("6.1.7601")

	require.Equal(t, winver.StatusUnsupported, res.Status)
	require.Equal(t, "7601", res.Build)
}

func TestResolveImageServerEdition(t *testing.T) {
	t.Parallel()

	res := winver.ResolveImage("17763", "Windows Server 2019 Standard")

	require.Equal(t, winver.StatusSupported, res.Status)
	require.Equal(t, api.OSFamilyServer2019, res.Family)

	res = winver.ResolveImage("14393", "Windows Server 2016 Datacenter")

	require.Equal(t, api.OSFamilyServer2016, res.Family)

	// Client edition on a shared build keeps the client family.
	res = winver.ResolveImage("17763", "Windows 10 Enterprise")

	require.Equal(t, api.OSFamilyWindows10, res.Family)
}
