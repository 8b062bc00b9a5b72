// Package servicing wraps the offline image servicing subsystem used to
// mount, modify and export WIM images.
package servicing

import (
	"context"
	"fmt"
)

// MountedImage represents an active image mount known to the servicing subsystem.
type MountedImage struct {
	ImagePath string
	Index     int
	MountDir  string
	Status    string
}

// ImageInfo represents the metadata of one image index inside a WIM file.
type ImageInfo struct {
	Index        int
	Name         string
	Description  string
	Version      string
	Architecture string
}

// Client represents the image servicing subsystem.
type Client interface {
	ListMountedImages(ctx context.Context) ([]MountedImage, error)

	Mount(ctx context.Context, imagePath string, index int, mountDir string) error
	Dismount(ctx context.Context, mountDir string, commit bool) error

	ApplyPackage(ctx context.Context, mountDir string, packagePath string) error
	AddDriver(ctx context.Context, mountDir string, driverDir string) error
	ImportAppAssociations(ctx context.Context, mountDir string, filePath string) error
	RemoveProvisionedPackage(ctx context.Context, mountDir string, name string) error

	ExportImage(ctx context.Context, sourcePath string, index int, destPath string, name string) error
	GetImageInfo(ctx context.Context, imagePath string, index int) (*ImageInfo, error)
}

// Load returns a servicing client of the requested type.
func Load(ctx context.Context, name string) (Client, error) {
	if name != "dism" {
		return nil, fmt.Errorf("unknown servicing client %q", name)
	}

	client := dism{}

	err := client.load(ctx)
	if err != nil {
		return nil, err
	}

	return &client, nil
}
