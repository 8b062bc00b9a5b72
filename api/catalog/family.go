package catalog

// OSFamily represents a Windows release family targeted by an update artifact.
type OSFamily string

const (
	// OSFamilyUndefined represents an unknown release family.
	OSFamilyUndefined OSFamily = ""

	// OSFamilyWindows10 represents the Windows 10 client family.
	OSFamilyWindows10 OSFamily = "windows-10"

	// OSFamilyWindows11 represents the Windows 11 client family.
	OSFamilyWindows11 OSFamily = "windows-11"

	// OSFamilyServer2016 represents the Windows Server 2016 family.
	OSFamilyServer2016 OSFamily = "server-2016"

	// OSFamilyServer2019 represents the Windows Server 2019 family.
	OSFamilyServer2019 OSFamily = "server-2019"

	// OSFamilyServer2022 represents the Windows Server 2022 family.
	OSFamilyServer2022 OSFamily = "server-2022"
)

// OSFamilies is a map of the supported release families.
var OSFamilies = map[OSFamily]struct{}{
	OSFamilyUndefined:  {},
	OSFamilyWindows10:  {},
	OSFamilyWindows11:  {},
	OSFamilyServer2016: {},
	OSFamilyServer2019: {},
	OSFamilyServer2022: {},
}

func (o *OSFamily) String() string {
	return string(*o)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (o *OSFamily) MarshalText() ([]byte, error) {
	return []byte(*o), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (o *OSFamily) UnmarshalText(text []byte) error {
	*o = OSFamily(text)

	return nil
}
