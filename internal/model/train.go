// Package model holds the records read from a train detection snapshot.
package model

import (
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Table names inside the snapshot.
const (
	TrainsTable       = "trains_v2"
	TemperaturesTable = "temperatures"
)

// TrainRow is the raw row layout of TrainsTable as scanned by gorm.
// It is only used as the scan target; callers get a frozen Train via ToTrain.
type TrainRow struct {
	ID            int64         `gorm:"column:id;primaryKey"`
	StartTS       Timestamp     `gorm:"column:start_ts"`
	EndTS         Timestamp     `gorm:"column:end_ts"`
	NFrames       int           `gorm:"column:n_frames"`
	LengthPx      float64       `gorm:"column:length_px"`
	SpeedPxS      float64       `gorm:"column:speed_px_s"`
	AccelPxS2     float64       `gorm:"column:accel_px_s_2"`
	PxPerM        float64       `gorm:"column:px_per_m"`
	ImageFilePath string        `gorm:"column:image_file_path"`
	GIFFilePath   string        `gorm:"column:gif_file_path"`
	UploadedAt    NullTimestamp `gorm:"column:uploaded_at"`
}

// TableName implements gorm's tabler interface.
func (TrainRow) TableName() string {
	return TrainsTable
}

// ToTrain freezes the row into a Train.
func (r TrainRow) ToTrain() Train {
	return Train{
		id:            r.ID,
		startTS:       r.StartTS.Time,
		endTS:         r.EndTS.Time,
		nFrames:       r.NFrames,
		lengthPx:      r.LengthPx,
		speedPxS:      r.SpeedPxS,
		accelPxS2:     r.AccelPxS2,
		pxPerM:        r.PxPerM,
		imageFilePath: r.ImageFilePath,
		gifFilePath:   r.GIFFilePath,
		uploadedAt:    r.UploadedAt.Time,
		uploaded:      r.UploadedAt.Valid,
	}
}

// Train is a single detection of a passing train.
// All fields are unexported and there are no setters: once built, a Train never
// changes, so it can be shared freely between views and caches.
type Train struct {
	id            int64
	startTS       time.Time
	endTS         time.Time
	nFrames       int
	lengthPx      float64
	speedPxS      float64
	accelPxS2     float64
	pxPerM        float64
	imageFilePath string
	gifFilePath   string
	uploadedAt    time.Time
	uploaded      bool
}

func (t Train) ID() int64             { return t.id }
func (t Train) StartTS() time.Time    { return t.startTS }
func (t Train) EndTS() time.Time      { return t.endTS }
func (t Train) NFrames() int          { return t.nFrames }
func (t Train) LengthPx() float64     { return t.lengthPx }
func (t Train) SpeedPxS() float64     { return t.speedPxS }
func (t Train) AccelPxS2() float64    { return t.accelPxS2 }
func (t Train) PxPerM() float64       { return t.pxPerM }
func (t Train) ImageFilePath() string { return t.imageFilePath }
func (t Train) GIFFilePath() string   { return t.gifFilePath }

// UploadedAt returns the upload instant, if the detection was uploaded.
func (t Train) UploadedAt() (time.Time, bool) {
	return t.uploadedAt, t.uploaded
}

// IsZero reports whether t is the zero Train.
func (t Train) IsZero() bool {
	return t.id == 0 && t.startTS.IsZero()
}

// Duration is the time between the first and the last frame.
func (t Train) Duration() time.Duration {
	return t.endTS.Sub(t.startTS)
}

// LengthM is the train length in metres.
func (t Train) LengthM() float64 {
	return math.Abs(t.lengthPx / t.pxPerM)
}

// SpeedMPS is the speed in metres per second, sign dropped.
func (t Train) SpeedMPS() float64 {
	return math.Abs(t.speedPxS / t.pxPerM)
}

// SpeedKPH is the speed in kilometres per hour, sign dropped.
func (t Train) SpeedKPH() float64 {
	return math.Abs(t.speedPxS / t.pxPerM * 3.6)
}

// AccelMPS2 is the acceleration in m/s², sign kept.
func (t Train) AccelMPS2() float64 {
	return t.accelPxS2 / t.pxPerM
}

// Direction is "left" or "right" depending on the sign of the pixel speed.
func (t Train) Direction() string {
	if t.speedPxS < 0 {
		return "left"
	}
	return "right"
}

type trainJSON struct {
	ID            int64   `json:"id"`
	StartTS       string  `json:"start_ts"`
	EndTS         string  `json:"end_ts"`
	NFrames       int     `json:"n_frames"`
	LengthPx      float64 `json:"length_px"`
	SpeedPxS      float64 `json:"speed_px_s"`
	AccelPxS2     float64 `json:"accel_px_s_2"`
	PxPerM        float64 `json:"px_per_m"`
	ImageFilePath string  `json:"image_file_path"`
	GIFFilePath   string  `json:"gif_file_path"`
	UploadedAt    *string `json:"uploaded_at"`
}

// MarshalJSON renders the train with the snapshot's column names.
func (t Train) MarshalJSON() ([]byte, error) {
	out := trainJSON{
		ID:            t.id,
		StartTS:       t.startTS.Format(time.RFC3339Nano),
		EndTS:         t.endTS.Format(time.RFC3339Nano),
		NFrames:       t.nFrames,
		LengthPx:      t.lengthPx,
		SpeedPxS:      t.speedPxS,
		AccelPxS2:     t.accelPxS2,
		PxPerM:        t.pxPerM,
		ImageFilePath: t.imageFilePath,
		GIFFilePath:   t.gifFilePath,
	}
	if t.uploaded {
		s := t.uploadedAt.Format(time.RFC3339Nano)
		out.UploadedAt = &s
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
}
