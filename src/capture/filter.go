package capture

import "image"

// BinarizeThreshold is the fixed luminance cut-off. Pixels whose mean of R, G
// and B is above it become white, the rest black. It is not adaptive.
const BinarizeThreshold = 127

// Binarize thresholds img in place. Alpha is left untouched.
func Binarize(img *image.NRGBA) {
	b := img.Rect
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			sum := int(row[i]) + int(row[i+1]) + int(row[i+2])
			var v byte
			if sum > 3*BinarizeThreshold {
				v = 255
			}
			row[i], row[i+1], row[i+2] = v, v, v
		}
	}
}
