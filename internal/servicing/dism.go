package servicing

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/lxc/incus/v6/shared/subprocess"
)

// The DISM-backed servicing client.
type dism struct {
	tool string
}

func (d *dism) load(_ context.Context) error {
	// Confirm the servicing tool is present.
	tool, err := exec.LookPath("dism")
	if err != nil {
		return errors.New("servicing tool couldn't be found in PATH")
	}

	d.tool = tool

	return nil
}

func (d *dism) ListMountedImages(ctx context.Context) ([]MountedImage, error) {
	output, err := subprocess.RunCommandContext(ctx, d.tool, "/Get-MountedImageInfo")
	if err != nil {
		return nil, err
	}

	return parseMountedImages(output), nil
}

func (d *dism) Mount(ctx context.Context, imagePath string, index int, mountDir string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Mount-Image", "/ImageFile:"+imagePath, "/Index:"+strconv.Itoa(index), "/MountDir:"+mountDir)

	return err
}

func (d *dism) Dismount(ctx context.Context, mountDir string, commit bool) error {
	action := "/Discard"
	if commit {
		action = "/Commit"
	}

	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Unmount-Image", "/MountDir:"+mountDir, action)

	return err
}

func (d *dism) ApplyPackage(ctx context.Context, mountDir string, packagePath string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Image:"+mountDir, "/Add-Package", "/PackagePath:"+packagePath)

	return err
}

func (d *dism) AddDriver(ctx context.Context, mountDir string, driverDir string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Image:"+mountDir, "/Add-Driver", "/Driver:"+driverDir, "/Recurse")

	return err
}

func (d *dism) ImportAppAssociations(ctx context.Context, mountDir string, filePath string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Image:"+mountDir, "/Import-DefaultAppAssociations:"+filePath)

	return err
}

func (d *dism) RemoveProvisionedPackage(ctx context.Context, mountDir string, name string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Image:"+mountDir, "/Remove-ProvisionedAppxPackage", "/PackageName:"+name)

	return err
}

func (d *dism) ExportImage(ctx context.Context, sourcePath string, index int, destPath string, name string) error {
	_, err := subprocess.RunCommandContext(ctx, d.tool, "/Export-Image", "/SourceImageFile:"+sourcePath, "/SourceIndex:"+strconv.Itoa(index), "/DestinationImageFile:"+destPath, "/DestinationName:"+name, "/Compress:max", "/CheckIntegrity")

	return err
}

func (d *dism) GetImageInfo(ctx context.Context, imagePath string, index int) (*ImageInfo, error) {
	output, err := subprocess.RunCommandContext(ctx, d.tool, "/Get-WimInfo", "/WimFile:"+imagePath, "/Index:"+strconv.Itoa(index))
	if err != nil {
		return nil, err
	}

	info := parseImageInfo(output)
	if info.Index == 0 {
		info.Index = index
	}

	return info, nil
}

// parseMountedImages extracts mount records from "key : value" blocks in the tool output.
func parseMountedImages(output string) []MountedImage {
	images := []MountedImage{}
	current := MountedImage{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := parseField(scanner.Text())
		if !ok {
			continue
		}

		switch key {
		case "Mount Dir":
			// A new record begins; flush any previous one.
			if current.MountDir != "" {
				images = append(images, current)
			}

			current = MountedImage{MountDir: value}
		case "Image File":
			current.ImagePath = value
		case "Image Index":
			current.Index, _ = strconv.Atoi(value)
		case "Status":
			current.Status = value
		default:
		}
	}

	if current.MountDir != "" {
		images = append(images, current)
	}

	return images
}

// parseImageInfo extracts image metadata from "key : value" lines in the tool output.
func parseImageInfo(output string) *ImageInfo {
	info := &ImageInfo{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := parseField(scanner.Text())
		if !ok {
			continue
		}

		switch key {
		case "Index":
			info.Index, _ = strconv.Atoi(value)
		case "Name":
			info.Name = value
		case "Description":
			info.Description = value
		case "Version":
			info.Version = value
		case "Architecture":
			info.Architecture = value
		default:
		}
	}

	return info
}

func parseField(line string) (string, string, bool) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}

	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
