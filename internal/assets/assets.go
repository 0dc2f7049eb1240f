// Package assets derives URLs and file names for the images stored next to a snapshot.
package assets

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/railwatch/trainview/internal/model"
)

const (
	fileNamePrefix = "train_"
	thumbSuffix    = ".thumb"

	fileTSFormat     = "20060102_150405Z07:00"
	fileTSFormatFrac = "20060102_150405.000Z07:00"
	// older uploads put an underscore before the zone
	legacyFileTSFormat = "20060102_150405_Z07:00"
)

// BlobURL joins a stored blob name to the blob base URL.
func BlobURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}

// ThumbName returns the thumbnail variant of a blob name: pic.jpg becomes pic.thumb.jpg.
func ThumbName(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + thumbSuffix + ext
}

// RevertThumbName is the inverse of ThumbName. Other names are returned unchanged.
func RevertThumbName(name string) string {
	if s, ok := strings.CutSuffix(name, thumbSuffix); ok {
		return s
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if !strings.HasSuffix(base, thumbSuffix) {
		return name
	}
	return strings.TrimSuffix(base, thumbSuffix) + ext
}

// ThumbURL is the URL of the thumbnail for a stored blob name.
func ThumbURL(base, name string) string {
	return BlobURL(base, ThumbName(name))
}

// FileName builds train_<yyyyMMdd_HHmmss[.fff]±hh:mm>.<ext>. The fraction is
// left out for whole seconds and UTC is written as Z.
func FileName(ts time.Time, ext string) string {
	layout := fileTSFormat
	if ts.Nanosecond()/int(time.Millisecond) != 0 {
		layout = fileTSFormatFrac
	}
	return fileNamePrefix + ts.Format(layout) + "." + strings.TrimPrefix(ext, ".")
}

// ParseFileName reads the timestamp and extension back out of a generated name.
func ParseFileName(name string) (time.Time, string, error) {
	rest, ok := strings.CutPrefix(path.Base(name), fileNamePrefix)
	if !ok {
		return time.Time{}, "", fmt.Errorf("not a train file name: %q", name)
	}
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return time.Time{}, "", fmt.Errorf("missing extension: %q", name)
	}
	ts, ext := rest[:dot], rest[dot+1:]

	for _, layout := range []string{fileTSFormat, legacyFileTSFormat} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, ext, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("bad timestamp in file name: %q", name)
}

// URLs are the asset locations of one train.
type URLs struct {
	Image string `json:"image"`
	Thumb string `json:"thumb"`
	GIF   string `json:"gif"`
}

// Resolver turns stored blob names into URLs below Base.
type Resolver struct {
	Base string
}

// ForTrain returns the image, thumbnail and gif URLs of t.
func (r Resolver) ForTrain(t model.Train) URLs {
	return URLs{
		Image: BlobURL(r.Base, t.ImageFilePath()),
		Thumb: ThumbURL(r.Base, t.ImageFilePath()),
		GIF:   BlobURL(r.Base, t.GIFFilePath()),
	}
}
