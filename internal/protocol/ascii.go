package protocol

// PutFixedASCII copies s into dst, truncating to len(dst) and zero-filling the rest.
func PutFixedASCII(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// TrimFixedASCII strips trailing NUL and space padding from a fixed-width field.
func TrimFixedASCII(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}
	// Some peers NUL-terminate and then leave garbage in the remaining bytes.
	for i := 0; i < end; i++ {
		if b[i] == 0 {
			end = i
			break
		}
	}
	return string(b[:end])
}
