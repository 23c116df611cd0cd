package bus

import "unicode/utf16"

// UTF16Span extracts an entity span from text addressed in UTF-16 code
// units, the platform convention for message entity offsets. Out-of-range
// spans return the empty string.
func UTF16Span(text string, offset int, length int) string {
	if text == "" || length <= 0 || offset < 0 {
		return ""
	}

	units := utf16.Encode([]rune(text))
	if offset >= len(units) {
		return ""
	}

	end := offset + length
	if end > len(units) {
		end = len(units)
	}

	return string(utf16.Decode(units[offset:end]))
}
