package id3

const (
	headerSize      = 10
	footerFlag byte = 0x10
)

// StripTags removes every ID3v2 tag at the start of data and returns the
// remaining audio. Data with a malformed header is returned unchanged.
func StripTags(data []byte) []byte {
	for {
		n, ok := tagLength(data)
		if !ok {
			return data
		}
		data = data[n:]
	}
}

// TagLength returns the byte length of the leading ID3v2 tag including its
// header and optional footer, or zero when data does not start with one.
func TagLength(data []byte) int {
	n, _ := tagLength(data)
	return n
}

func tagLength(data []byte) (int, bool) {
	if len(data) < headerSize || string(data[0:3]) != "ID3" {
		return 0, false
	}
	if data[3] == 0xFF || data[4] == 0xFF {
		return 0, false
	}
	size := 0
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return 0, false
		}
		size = size<<7 | int(b)
	}
	total := headerSize + size
	if data[5]&footerFlag != 0 {
		total += headerSize
	}
	if total > len(data) {
		return 0, false
	}
	return total, true
}
