package parser

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

type Image struct {
	ID      string
	Tags    []string
	Digests []string
	Size    quantity.Quantity
}

// Refs is every string a container may use to point at this image.
func (i Image) Refs() []string {
	refs := append([]string{i.ID, trimAlgo(i.ID)}, i.Tags...)
	return append(refs, i.Digests...)
}

type ContainerRef struct {
	ID        string
	Name      string
	Namespace string
	Pod       string
	Image     string
	ImageRef  string
	Running   bool
}

// uint64 fields are strings in CRI JSON output; accept numbers too.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexUint(n)
	return nil
}

// ParseImageInventory decodes `crictl images -o json`.
func ParseImageInventory(node string, raw []byte) ([]Image, error) {
	var doc struct {
		Images *[]struct {
			ID          string   `json:"id"`
			RepoTags    []string `json:"repoTags"`
			RepoDigests []string `json:"repoDigests"`
			Size        flexUint `json:"size"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, diagerr.Schema(node, "image inventory: %v", err)
	}
	if doc.Images == nil {
		return nil, diagerr.Schema(node, "image inventory has no images field")
	}
	out := make([]Image, 0, len(*doc.Images))
	for _, im := range *doc.Images {
		if im.ID == "" {
			return nil, diagerr.Schema(node, "image without id")
		}
		out = append(out, Image{
			ID:      im.ID,
			Tags:    im.RepoTags,
			Digests: im.RepoDigests,
			Size:    quantity.FromBytes(int64(im.Size)),
		})
	}
	return out, nil
}

// ParseContainers decodes `crictl ps -o json`.
func ParseContainers(node string, raw []byte) ([]ContainerRef, error) {
	var doc struct {
		Containers *[]struct {
			ID       string `json:"id"`
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
			Image struct {
				Image string `json:"image"`
			} `json:"image"`
			ImageRef string            `json:"imageRef"`
			State    string            `json:"state"`
			Labels   map[string]string `json:"labels"`
		} `json:"containers"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, diagerr.Schema(node, "container list: %v", err)
	}
	if doc.Containers == nil {
		return nil, diagerr.Schema(node, "container list has no containers field")
	}
	out := make([]ContainerRef, 0, len(*doc.Containers))
	for _, c := range *doc.Containers {
		out = append(out, ContainerRef{
			ID:        c.ID,
			Name:      c.Metadata.Name,
			Namespace: c.Labels["io.kubernetes.pod.namespace"],
			Pod:       c.Labels["io.kubernetes.pod.name"],
			Image:     c.Image.Image,
			ImageRef:  c.ImageRef,
			Running:   c.State == "CONTAINER_RUNNING",
		})
	}
	return out, nil
}

func trimAlgo(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 && !strings.Contains(id, "/") {
		return id[i+1:]
	}
	return id
}
