package privacy

// RedactIdentityCode redacts a personal identity code for logging and audit
// trails, keeping only the last four characters (individual number and
// checksum). The birth date half of the code is always masked.
func RedactIdentityCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return "****" + code[len(code)-4:]
}
