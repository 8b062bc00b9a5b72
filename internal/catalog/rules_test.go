package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
	"github.com/EdenNelson/wimwitch-tng/internal/catalog"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		class api.Class
	}{
		{"2023-10 Servicing Stack Update for Windows 10 Version 22H2 for x64-based Systems (KB5031539)", api.ClassSSU},
		{"2023-10 Cumulative Update for Windows 10 Version 22H2 for x64-based Systems (KB5031356)", api.ClassLCU},
		{"2023-10 Cumulative Update for Windows 11 Version 23H2 for x64-based Systems (KB5031455)", api.ClassLCU},
		{"2023-10 Cumulative Update for Microsoft server operating system version 21H2 (KB5031364)", api.ClassLCU},
		{"2023-10 Cumulative Update for .NET Framework 3.5 and 4.8.1 for Windows 11 (KB5031323)", api.ClassDotNetCumulative},
		{"Update for .NET Framework 4.8 for Windows 10 Version 22H2 (KB4486153)", api.ClassDotNet},
		{"Security Update for Adobe Flash Player for Windows 10 Version 1809 (KB4580325)", api.ClassAdobe},
		{"2023-10 Safe OS Dynamic Update for Windows 11 Version 23H2 (KB5031588)", api.ClassDynamic},
		{"2023-10 Dynamic Update for Windows 10 Version 22H2 (KB5031591)", api.ClassDynamic},
		{"Windows Malicious Software Removal Tool x64 - v5.118 (KB890830)", api.ClassOptional},
	}

	for _, tc := range tests {
		require.Equal(t, tc.class, catalog.Classify(tc.title), tc.title)
	}
}

// Specific-component rules must outrank the generic cumulative rule: a .NET
// cumulative title also mentions the Windows product it targets.
func TestClassifyOrdering(t *testing.T) {
	t.Parallel()

	title := "2023-10 Cumulative Update for .NET Framework 3.5 and 4.8 for Windows 10 Version 22H2 for x64 (KB5031224)"

	require.Equal(t, api.ClassDotNetCumulative, catalog.Classify(title))
}
