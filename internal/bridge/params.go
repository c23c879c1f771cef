package bridge

import (
	"bufio"
	"os"
	"strings"
)

// Params holds the connection parameters for one target database. Either
// Password or PasswordFile must be set; the file form is resolved once at
// manager construction and the parameters are immutable after that.
type Params struct {
	Host         string
	Database     string
	User         string
	Password     string
	PasswordFile string
}

// ReadPasswordFile returns the credential stored in the named file. The
// password is expected to be the entire first line of the file, trimmed.
func ReadPasswordFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// LoadPgpass looks up the password for user in a .pgpass-style file
// (colon-delimited host:port:database:user:password lines; first matching
// line wins). The lookup is best effort: some deployments do not install the
// password file at all, so any failure here reports not-found rather than an
// error and the caller fails later on its own terms.
func LoadPgpass(path, user string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		pieces := strings.Split(strings.TrimSpace(scanner.Text()), ":")
		if len(pieces) == 5 && pieces[3] == user {
			return pieces[4], true
		}
	}
	return "", false
}
