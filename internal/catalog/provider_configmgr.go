package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	api "github.com/EdenNelson/wimwitch-tng/api/catalog"
)

// The ConfigMgr provider queries a site's software update catalog through the
// management point's REST data interface.
type configMgr struct {
	config map[string]string

	serverURL string
	token     string
	client    *http.Client
}

// cmSoftwareUpdate represents one software update record returned by the management point.
type cmSoftwareUpdate struct {
	DisplayName  string    `json:"LocalizedDisplayName"`
	ArticleID    string    `json:"ArticleID"`
	IsSuperseded bool      `json:"IsSuperseded"`
	DateRevised  time.Time `json:"DateRevised"`

	ContentFiles []cmContentFile `json:"ContentFiles"`
}

// cmContentFile represents a content file attached to a software update record.
type cmContentFile struct {
	FileName  string `json:"FileName"`
	SourceURL string `json:"SourceURL"`
	FileHash  string `json:"FileHash"`
	FileSize  int64  `json:"FileSize"`
}

func (*configMgr) Type() string {
	return "configmgr"
}

func (*configMgr) ClearCache(_ context.Context) error {
	// The management point is local; queries aren't cached.
	return nil
}

func (p *configMgr) load(_ context.Context) error {
	// Set up the configuration.
	p.serverURL = p.config["server_url"]
	p.token = p.config["token"]
	p.client = http.DefaultClient

	// Basic validation.
	if p.serverURL == "" {
		return errors.New("configmgr catalog requires a server_url")
	}

	return nil
}

func (p *configMgr) Query(ctx context.Context, filter Filter) ([]api.Artifact, error) {
	// The management point matches updates on the localized product title.
	product := productName(filter)

	body, err := p.apiRequest(ctx, "/AdminService/wmi/SMS_SoftwareUpdate?product="+url.QueryEscape(product)+"&architecture="+url.QueryEscape(filter.Architecture))
	if err != nil {
		return nil, err
	}

	// Parse the record list.
	records := struct {
		Value []cmSoftwareUpdate `json:"value"`
	}{}

	err = json.Unmarshal(body, &records)
	if err != nil {
		return nil, err
	}

	artifacts := []api.Artifact{}

	for _, record := range records.Value {
		artifact := api.Artifact{
			Title:        record.DisplayName,
			Article:      record.ArticleID,
			OSFamily:     filter.OSFamily,
			Version:      filter.Version,
			Architecture: filter.Architecture,
			Superseded:   record.IsSuperseded,
			ReleasedAt:   record.DateRevised,
		}

		for _, file := range record.ContentFiles {
			artifact.Files = append(artifact.Files, api.ContentFile{
				Filename: file.FileName,
				URL:      file.SourceURL,
				Sha256:   file.FileHash,
				Size:     file.FileSize,
			})
		}

		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

func (p *configMgr) apiRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+path, nil)
	if err != nil {
		return nil, errors.New("unable to create http request: " + err.Error())
	}

	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.New("unable to reach management point: " + err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad HTTP response code from management point: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// productName maps a query filter to the product title used by the site catalog.
func productName(filter Filter) string {
	switch filter.OSFamily {
	case api.OSFamilyWindows10:
		return "Windows 10, version " + filter.Version
	case api.OSFamilyWindows11:
		return "Windows 11, version " + filter.Version
	case api.OSFamilyServer2016:
		return "Windows Server 2016"
	case api.OSFamilyServer2019:
		return "Windows Server 2019"
	case api.OSFamilyServer2022:
		return "Microsoft Server operating system, version " + filter.Version
	default:
		return string(filter.OSFamily)
	}
}
