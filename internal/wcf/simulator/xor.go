package simulator

import "errors"

// errUnknownImage is returned for .dat files whose header matches no
// supported image format under any single-byte key.
var errUnknownImage = errors.New("simulator: unrecognised image data")

type imageMagic struct {
	ext   string
	magic []byte
}

var imageMagics = []imageMagic{
	{"jpg", []byte{0xff, 0xd8, 0xff}},
	{"png", []byte{0x89, 0x50, 0x4e, 0x47}},
	{"gif", []byte{0x47, 0x49, 0x46, 0x38}},
	{"bmp", []byte{0x42, 0x4d}},
}

// detectXOR finds the single-byte key that turns data into a known image
// format and returns the key with the file extension for that format.
func detectXOR(data []byte) (key byte, ext string, err error) {
	for _, m := range imageMagics {
		if len(data) < len(m.magic) {
			continue
		}
		k := data[0] ^ m.magic[0]
		match := true
		for i := 1; i < len(m.magic); i++ {
			if data[i]^k != m.magic[i] {
				match = false
				break
			}
		}
		if match {
			return k, m.ext, nil
		}
	}
	return 0, "", errUnknownImage
}

// xorBytes returns data with every byte XORed with key.
func xorBytes(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key
	}
	return out
}
