package domain

import "image"

// Image is a decoded bitmap together with where it came from.
type Image struct {
	Path   string
	Format string
	Bitmap image.Image
}

type Stage string

const (
	StageValidate Stage = "validate"
	StageLoad     Stage = "load"
	StageProcess  Stage = "process"
	StageSave     Stage = "save"
)

const (
	SuccessPrefix = "SUCCESS: "
	ErrorPrefix   = "ERROR: "
)
