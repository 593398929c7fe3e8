package validation

// Letter codes of the first character of a Taiwan national ID.
var letterCodes = map[byte]int{
	'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17,
	'I': 34, 'J': 18, 'K': 19, 'L': 20, 'M': 21, 'N': 22, 'O': 35, 'P': 23,
	'Q': 24, 'R': 25, 'S': 26, 'T': 27, 'U': 28, 'V': 29, 'W': 32, 'X': 30,
	'Y': 31, 'Z': 33,
}

// ValidNationalID accepts citizen IDs (second digit 1/2) and resident
// certificate numbers in both the current (8/9) and the old letter format.
func ValidNationalID(id string) bool {
	if len(id) != 10 {
		return false
	}

	first, ok := letterCodes[id[0]]
	if !ok {
		return false
	}

	var second int
	switch c := id[1]; {
	case c == '1' || c == '2' || c == '8' || c == '9':
		second = int(c - '0')
	case c >= 'A' && c <= 'D':
		code := letterCodes[c]
		second = code % 10
	default:
		return false
	}

	sum := first/10 + (first%10)*9 + second*8
	for i := 2; i < 9; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * (9 - i)
	}

	check := id[9]
	if check < '0' || check > '9' {
		return false
	}
	sum += int(check - '0')

	return sum%10 == 0
}
