package catalog

// Class represents the servicing class of an update artifact.
type Class string

const (
	// ClassUndefined represents an unknown update class.
	ClassUndefined Class = ""

	// ClassSSU represents a standalone servicing stack update.
	ClassSSU Class = "ssu"

	// ClassLCU represents a latest cumulative update.
	ClassLCU Class = "lcu"

	// ClassAdobe represents an Adobe Flash removal/security update.
	ClassAdobe Class = "adobe"

	// ClassDotNet represents a .NET Framework update.
	ClassDotNet Class = "dotnet"

	// ClassDotNetCumulative represents a cumulative .NET Framework update.
	ClassDotNetCumulative Class = "dotnet-cumulative"

	// ClassOptional represents an update that didn't match any specific rule.
	ClassOptional Class = "optional"

	// ClassDynamic represents setup dynamic update content for installation media.
	ClassDynamic Class = "dynamic"
)

// Classes is a map of the supported update classes.
var Classes = map[Class]struct{}{
	ClassUndefined:        {},
	ClassSSU:              {},
	ClassLCU:              {},
	ClassAdobe:            {},
	ClassDotNet:           {},
	ClassDotNetCumulative: {},
	ClassOptional:         {},
	ClassDynamic:          {},
}

// ApplyOrder is the order in which update classes are deployed to a mounted image.
// Servicing stack content always lands before cumulative content.
var ApplyOrder = []Class{
	ClassSSU,
	ClassLCU,
	ClassAdobe,
	ClassDotNet,
	ClassDotNetCumulative,
	ClassOptional,
}

func (c *Class) String() string {
	return string(*c)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (c *Class) MarshalText() ([]byte, error) {
	return []byte(*c), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (c *Class) UnmarshalText(text []byte) error {
	*c = Class(text)

	return nil
}
