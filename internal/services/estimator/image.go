package estimator

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// PrepareImage bounds the payload sent to the oracle: the image is scaled
// down (never up) to fit within maxDimension on both axes with the aspect
// ratio preserved, then re-encoded as JPEG at the given quality. EXIF
// orientation is applied during decode so phone photos arrive upright.
func PrepareImage(data []byte, maxDimension, quality int) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fit(src, maxDimension, maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
