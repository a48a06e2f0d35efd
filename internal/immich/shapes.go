package immich

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"palette/internal/services"
)

// Asset is the subset of an Immich asset palette works with.
type Asset struct {
	ID           string
	OriginalPath string
	SizeBytes    int64
}

// DuplicateGroup is one server-reported set of assets believed identical.
type DuplicateGroup struct {
	ID     string
	Assets []Asset
}

// Tag is a server tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type assetJSON struct {
	ID           string    `json:"id"`
	OriginalPath string    `json:"originalPath"`
	ExifInfo     *exifJSON `json:"exifInfo"`
	Exif         *exifJSON `json:"exif"`
}

type exifJSON struct {
	FileSizeInByte flexInt `json:"fileSizeInByte"`
}

func (a assetJSON) asset() Asset {
	out := Asset{ID: a.ID, OriginalPath: a.OriginalPath}
	switch {
	case a.ExifInfo != nil && a.ExifInfo.FileSizeInByte > 0:
		out.SizeBytes = int64(a.ExifInfo.FileSizeInByte)
	case a.Exif != nil:
		out.SizeBytes = int64(a.Exif.FileSizeInByte)
	}
	return out
}

// flexInt accepts a JSON number or a numeric string. Unparseable values
// decode as zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if text == "" || text == "null" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		*f = flexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		*f = flexInt(int64(v))
		return nil
	}
	*f = 0
	return nil
}

// shapeParser extracts the item list from one known response layout. It
// reports false when the payload is not in that layout.
type shapeParser struct {
	name  string
	parse func(data []byte) ([]json.RawMessage, bool)
}

var (
	bareArray = shapeParser{name: "array", parse: func(data []byte) ([]json.RawMessage, bool) {
		if !startsWith(data, '[') {
			return nil, false
		}
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false
		}
		return items, true
	}}

	itemsObject = shapeParser{name: "items", parse: func(data []byte) ([]json.RawMessage, bool) {
		var wrapper struct {
			Items *[]json.RawMessage `json:"items"`
		}
		if !startsWith(data, '{') || json.Unmarshal(data, &wrapper) != nil || wrapper.Items == nil {
			return nil, false
		}
		return *wrapper.Items, true
	}}

	assetsItems = shapeParser{name: "assets.items", parse: func(data []byte) ([]json.RawMessage, bool) {
		var wrapper struct {
			Assets *struct {
				Items []json.RawMessage `json:"items"`
			} `json:"assets"`
		}
		if !startsWith(data, '{') || json.Unmarshal(data, &wrapper) != nil || wrapper.Assets == nil {
			return nil, false
		}
		return wrapper.Assets.Items, true
	}}
)

var (
	searchShapes    = []shapeParser{assetsItems, itemsObject, bareArray}
	listShapes      = []shapeParser{bareArray, itemsObject}
	duplicateShapes = []shapeParser{bareArray, itemsObject}
)

func startsWith(data []byte, b byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == b
}

// decodeItems runs parsers in order and unmarshals the first match into T.
func decodeItems[T any](op string, data []byte, parsers []shapeParser) ([]T, error) {
	for _, p := range parsers {
		raw, ok := p.parse(data)
		if !ok {
			continue
		}
		out := make([]T, 0, len(raw))
		for _, item := range raw {
			var v T
			if err := json.Unmarshal(item, &v); err != nil {
				return nil, services.Wrap(services.ErrCorrupt, "immich", op, "decode "+p.name+" item", err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, services.Wrap(services.ErrCorrupt, "immich", op, "unrecognized response shape", nil)
}
